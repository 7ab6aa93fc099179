// Package kittygfx implements the terminal-side core of the kitty graphics
// protocol: command parsing, the disk/RAM/pixmap cache, frame animation,
// and protocol response generation. It does not draw glyphs, manage a cell
// grid, or own a pixel surface; those are host responsibilities reached
// through the Surface interface and the placeholder callbacks on Store.
package kittygfx
