// Command pstifftool composes image files into a layered TIFF and inspects
// existing ones.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/vearutop/pstiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "compose":
		if err := runCompose(os.Args[2:]); err != nil {
			fail(err)
		}
	case "info":
		if err := runInfo(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pstifftool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  compose -out out.tiff [-size WxH] [-reduced] layer[@X,Y][=name] ...")
	fmt.Fprintln(os.Stderr, "          layers are image files stacked bottom to top")
	fmt.Fprintln(os.Stderr, "  info    -in file.tiff")
}

func runCompose(args []string) error {
	fs := flag.NewFlagSet("compose", flag.ContinueOnError)
	outPath := fs.String("out", "", "output layered TIFF")
	size := fs.String("size", "", "canvas size as WxH, defaults to the first layer size")
	reduced := fs.Bool("reduced", false, "add a reduced-resolution preview page")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return err
	}

	specs := fs.Args()
	if *outPath == "" || len(specs) == 0 {
		return errors.New("missing required arguments")
	}

	width, height, err := parseSize(*size)
	if err != nil {
		return err
	}

	b, err := pstiff.New(width, height, func(o *pstiff.Options) {
		o.AutoCanvas = *size == ""
		o.Reduced = *reduced
	})
	if err != nil {
		return err
	}

	for _, spec := range specs {
		path, offset, name, err := parseLayerSpec(spec)
		if err != nil {
			return err
		}

		img, err := decodeImage(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		err = b.AddLayer(img, func(o *pstiff.LayerOptions) {
			o.Offset = offset
			o.Name = name
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return b.Write(*outPath)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	inPath := fs.String("in", "", "layered TIFF to inspect")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *inPath == "" {
		return errors.New("missing required arguments")
	}

	info, err := pstiff.InfoFile(*inPath)
	if err != nil {
		return err
	}

	fmt.Printf("canvas: %dx%d\n", info.Width, info.Height)

	if info.Reduced {
		fmt.Printf("reduced page: %dx%d\n", info.ReducedWidth, info.ReducedHeight)
	}

	for i, l := range info.Layers {
		hidden := ""
		if l.Hidden {
			hidden = " hidden"
		}

		fmt.Printf("%d: %q at (%d,%d) size %dx%d opacity %d%s\n",
			i, l.Name, l.Rect.Min.X, l.Rect.Min.Y, l.Rect.Dx(), l.Rect.Dy(), l.Opacity, hidden)
	}

	return nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)

	return img, err
}

func parseSize(s string) (width, height int, err error) {
	if s == "" {
		return 0, 0, nil
	}

	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, errors.New("size must be WxH")
	}

	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, errors.New("size must be WxH")
	}

	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, errors.New("size must be WxH")
	}

	return width, height, nil
}

// parseLayerSpec parses "file[@X,Y][=name]".
func parseLayerSpec(spec string) (path string, offset image.Point, name string, err error) {
	path = spec

	if i := strings.IndexByte(path, '='); i >= 0 {
		name = path[i+1:]
		path = path[:i]
	}

	if i := strings.LastIndexByte(path, '@'); i >= 0 {
		x, y, ok := strings.Cut(path[i+1:], ",")
		if ok {
			offset.X, err = strconv.Atoi(x)
			if err == nil {
				offset.Y, err = strconv.Atoi(y)
			}

			ok = err == nil
		}

		if !ok {
			return "", image.Point{}, "", fmt.Errorf("bad layer offset in %q", spec)
		}

		path = path[:i]
	}

	return path, offset, name, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
