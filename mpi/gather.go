package mpi

// Gatherv collects a variable-length slice from every rank onto root. On root
// the result is indexed by rank; on every other rank it is nil.
//
// Every rank must call Gatherv. Each non-root rank sends two messages to root,
// its length and then its data, so no other messages from that rank to root
// may be pending when Gatherv is called.
func Gatherv(c Comm, local []float64, root int) ([][]float64, error) {
	if c.Rank() != root {
		n := []float64{float64(len(local))}
		if err := c.Send(n, Contiguous(1), root); err != nil {
			return nil, err
		}
		return nil, c.Send(local, Contiguous(len(local)), root)
	}

	out := make([][]float64, c.Size())
	for r := range out {
		if r == root {
			out[r] = append([]float64{}, local...)
			continue
		}

		n := []float64{0}
		if err := c.Recv(n, Contiguous(1), r); err != nil {
			return nil, err
		}
		out[r] = make([]float64, int(n[0]))
		if err := c.Recv(out[r], Contiguous(len(out[r])), r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
