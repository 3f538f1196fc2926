package loops

func countdown(n int) int {
	for n > 0 {
		n--
	}
	return n
}
