package entity

// Document store collection names
const (
	CollectionUsers                  = "users"
	CollectionClubs                  = "clubs"
	CollectionExpenses               = "expenses"
	CollectionRepresentativeRequests = "representativeRequests"
)

// Collections lists every collection a session subscribes to, in subscription order
var Collections = []string{
	CollectionUsers,
	CollectionClubs,
	CollectionExpenses,
	CollectionRepresentativeRequests,
}

// Display fallbacks used when denormalizing names onto expenses
const (
	UnknownClubName = "Unknown Club"
	UnknownUserName = "Unknown User"
)

// Validation limits for user-submitted records
const (
	MinExpenseDescriptionLength = 10
	MinClubNameLength           = 3
	MinClubDescriptionLength    = 10
)
