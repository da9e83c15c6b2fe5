package pool

// Bound adapts one segment index of a Pool to the plain ReadAt(p,
// off)/WriteAt(p, off) shape package section and package segment
// expect, so their section-chain walkers don't need to know about
// multi-file pools at all.
type Bound struct {
	pool  *Pool
	index uint16
}

// Bind returns a Bound view of one segment index.
func (p *Pool) Bind(index uint16) Bound {
	return Bound{pool: p, index: index}
}

func (b Bound) ReadAt(buf []byte, off int64) (int, error) {
	return b.pool.ReadAt(b.index, buf, off)
}

func (b Bound) WriteAt(buf []byte, off int64) (int, error) {
	return b.pool.WriteAt(b.index, buf, off)
}

func (b Bound) Size() (int64, error) {
	return b.pool.Size(b.index)
}
