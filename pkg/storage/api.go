package storage

// ApiStore defines the complete set of operations needed by the broker core.
// It composes other interfaces to provide a clear boundary for data access.
type ApiStore interface {
	DonationStore
	FundingStore
	UsageStore
	ItemRequestStore
	PoolReader
	ContributionStore
}
