package domain

// DefaultFeePercent is the marketplace cut withheld from every order
// before the remainder is credited to the device owner.
const DefaultFeePercent = 10

// SplitFee divides an order price into the owner's net amount and the
// withheld fee. The fee is floor(price * percent / 100), so
// net + fee == price for any non-negative integer price.
func SplitFee(price int64, percent int64) (net int64, fee int64) {
	fee = price * percent / 100
	return price - fee, fee
}
