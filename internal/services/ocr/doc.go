// Package ocr transcribes handwriting images through an OpenAI-compatible
// vision chat endpoint.
//
// The client sends one image per request as a data URL and instructs the
// model to return every visible word with a normalized bounding box and a
// confidence score. Responses are decoded tolerantly (code fences and
// chatter around the JSON payload are stripped) and box coordinates are
// converted from the model's 0-1000 space into pixel coordinates of the
// submitted image.
package ocr
