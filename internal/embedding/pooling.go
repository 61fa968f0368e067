package embedding

// meanPool averages per-token hidden states (row-major, dim values per token) over the
// tokens whose attention mask is set.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var n float32
	for tok, m := range mask {
		if m == 0 || (tok+1)*dim > len(hidden) {
			continue
		}
		row := hidden[tok*dim : (tok+1)*dim]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}
