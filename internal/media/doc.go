// Package media turns source image bytes into transformed artifacts.
//
// Two Transformer backends exist. VipsTransformer uses libvips through govips
// and can encode every registered image format. ImagingTransformer is pure Go
// (disintegration/imaging plus golang.org/x/image) and covers JPEG, PNG, GIF,
// BMP and TIFF. NewTransformer picks libvips when InitVips has succeeded.
//
// Both backends share planGeometry, so a given set of parameters produces the
// same output dimensions regardless of backend:
//
//   - fit: scale down to fit inside the box, never upscale
//   - crop: fill the box, cropping the centre
//   - stretch: scale to the exact box, ignoring aspect ratio
//   - pad: fit inside the box, then centre on a background canvas
//
// Prompt-driven generation is not done here; a PromptGenerator (see the
// gemini package) produces the image and the result is then passed through a
// Transformer for the remaining parameters.
package media
