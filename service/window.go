package service

// The submission window of a proof announced at block a with delay d is
// [a+d-1, a+d]. Heights below the window are too early, heights above it
// are too late.

func eligible(announced, height, delay uint64) bool {
	return height+1 >= announced+delay && height <= announced+delay
}

func expired(announced, height, delay uint64) bool {
	return height > announced+delay
}
