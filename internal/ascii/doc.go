// Package ascii turns grayscale frame samples into text.
//
// A Charset maps brightness in [0,1] to a glyph, Decode turns a raw 8-bit
// grayscale stream into a FrameBuffer, and Render maps every sample of a
// buffer to produce a Frame. All three are pure and safe for concurrent use.
package ascii
