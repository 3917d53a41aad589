package sampling

// riskDirectedSelect takes the top-N rows of a risk ranking (row
// indexes ordered most-risky first). The justification requirement and
// the non-projectability note are enforced by the planner stages.
func riskDirectedSelect(ranking []int, size int) []int {
	if size > len(ranking) {
		size = len(ranking)
	}
	selected := make([]int, size)
	copy(selected, ranking[:size])
	return selected
}
