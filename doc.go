// Package pstiff composes raster layers into a Photoshop-compatible layered TIFF.
//
// The output is a regular TIFF with a flattened composite page that any viewer
// can open, plus the Adobe ImageSourceData resource (TIFF tag 37724) carrying
// the individual layer records that Photoshop reconstructs on open. Both the
// TIFF container and the Photoshop resource block are assembled in Go.
package pstiff
