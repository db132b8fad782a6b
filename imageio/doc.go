// Package imageio loads frame sequences from GIFs, separate images and
// spritesheets, and writes interpolated sequences back out as GIFs, numbered
// PNG files or a single spritesheet.
package imageio
