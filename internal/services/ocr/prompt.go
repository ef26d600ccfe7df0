package ocr

// transcriptionPrompt instructs the vision model to emit word-level
// results. Coordinates use the model's canonical 0-1000 space so the same
// prompt works regardless of input resolution.
const transcriptionPrompt = `You are a handwriting transcription engine.
Look at the image and transcribe every handwritten word you can see, in
reading order (left to right, top to bottom).

Respond with JSON only, no prose, in exactly this shape:
{"words":[{"text":"<word>","box_2d":[ymin,xmin,ymax,xmax],"confidence":<0..1>}]}

Rules:
- box_2d coordinates are integers in a 0-1000 space covering the full image.
- One entry per word. Do not merge words or split a word across entries.
- Transcribe what is written, including misspellings. Never correct them.
- Keep punctuation attached to the word it follows.
- If the page is blank or unreadable, return {"words":[]}.`
