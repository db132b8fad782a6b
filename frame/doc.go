/*
Package frame provides the RGBA8 pixel buffer used as the unit of input and
output by the interpolation engine.

Basic usage:

	// Convert any decoded image into a frame
	f := frame.FromImage(img)

	// Frames are immutable, clone before handing a copy to someone else
	copied := f.Clone()

	// Go back to the standard library when saving
	rgba := copied.ToImage()
*/
package frame
