package loom

// BufferPool double-buffers frames. Each call to Next hands out the buffer
// that is not holding the previous frame, cleared and sized to the viewport,
// so a steady stream of ticks allocates nothing.
type BufferPool struct {
	buffers [2]*Buffer
	current int
}

// Next switches buffers and returns the new current one, blank and sized
// to size. The buffer returned by the previous call stays untouched.
func (p *BufferPool) Next(size Size) *Buffer {
	p.current = 1 - p.current
	b := p.buffers[p.current]
	if b == nil {
		b = NewBuffer(size.Width, size.Height)
		p.buffers[p.current] = b
		return b
	}
	b.reshape(size.Width, size.Height)
	b.Clear()
	return b
}

// Current returns the buffer handed out by the last call to Next.
func (p *BufferPool) Current() *Buffer {
	return p.buffers[p.current]
}

// reshape sets b's dimensions, reusing its cells when they are big enough.
// Content is not preserved.
func (b *Buffer) reshape(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if needed := width * height; cap(b.cells) < needed {
		b.cells = make([]Cell, needed)
	} else {
		b.cells = b.cells[:needed]
	}
	b.width, b.height = width, height
}
