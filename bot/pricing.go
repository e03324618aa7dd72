package bot

// SplitPackagePrice divides the price of a package across n flavor splits.
// Each split gets an equal integer share of cents; whatever remainder is
// left over lands on the last split so the shares always sum back to the
// package price.
func SplitPackagePrice(packagePriceCents int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	shares := make([]int64, n)
	base := packagePriceCents / int64(n)
	for i := range shares {
		shares[i] = base
	}
	shares[n-1] += packagePriceCents - base*int64(n)
	return shares
}
