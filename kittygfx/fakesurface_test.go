package kittygfx

// fakeSurface is an in-memory Surface used by tests that need the composer
// to actually allocate and upload pixels without a real terminal backend.
type fakeSurface struct {
	nextHandle   int
	pixmaps      map[int][]uint32
	composites   []compositeCall
	freed        []int
}

type compositeCall struct {
	src      int
	srcRect  Rect
	dstRect  Rect
	op       CompositeOp
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{pixmaps: make(map[int][]uint32)}
}

func (f *fakeSurface) AllocatePixmap(w, h int) (PixmapHandle, error) {
	f.nextHandle++
	f.pixmaps[f.nextHandle] = make([]uint32, w*h)
	return f.nextHandle, nil
}

func (f *fakeSurface) UploadPremultiplied(p PixmapHandle, argb []uint32, w, h int) error {
	h2 := p.(int)
	buf := make([]uint32, len(argb))
	copy(buf, argb)
	f.pixmaps[h2] = buf
	return nil
}

func (f *fakeSurface) Composite(src PixmapHandle, srcRect, dstRect Rect, op CompositeOp) error {
	f.composites = append(f.composites, compositeCall{src: src.(int), srcRect: srcRect, dstRect: dstRect, op: op})
	return nil
}

func (f *fakeSurface) InvertCopy(src PixmapHandle, w, h int) (PixmapHandle, error) {
	f.nextHandle++
	orig := f.pixmaps[src.(int)]
	inv := make([]uint32, len(orig))
	for i, px := range orig {
		inv[i] = px ^ 0x00ffffff
	}
	f.pixmaps[f.nextHandle] = inv
	return f.nextHandle, nil
}

func (f *fakeSurface) FreePixmap(p PixmapHandle) error {
	f.freed = append(f.freed, p.(int))
	delete(f.pixmaps, p.(int))
	return nil
}
