package pipeline

// Aggregate drops regions that decoded nothing and keeps the rest in
// detection order. Payloads are returned exactly as the decoder produced
// them. An all-nil input is a valid, empty result.
func Aggregate(perRegion []*DecodeResult) *Result {
	res := &Result{Results: make([]DecodeResult, 0, len(perRegion))}
	for _, d := range perRegion {
		if d == nil {
			continue
		}
		res.Results = append(res.Results, *d)
	}
	return res
}
