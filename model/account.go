package model

// Role identifies one of the fixed identities the system signs for.
type Role string

const (
	RoleIssuer Role = "issuer"
	RoleHot    Role = "hot"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// Account is a signing identity. Created once at setup; the seed is
// immutable configuration, the on-ledger state (balance, sequence, trust
// lines) is owned by the network.
type Account struct {
	Role        Role   `json:"role"`
	Address     string `json:"address"`
	Seed        string `json:"-"`
	RequireAuth bool   `json:"require_auth"`
}

// AccountSet is the fixed set of managed accounts, indexed by address.
type AccountSet struct {
	byAddress map[string]*Account
	byRole    map[Role]*Account
}

func NewAccountSet(accounts ...*Account) *AccountSet {
	s := &AccountSet{
		byAddress: make(map[string]*Account),
		byRole:    make(map[Role]*Account),
	}
	for _, a := range accounts {
		if a == nil || a.Address == "" {
			continue
		}
		s.byAddress[a.Address] = a
		s.byRole[a.Role] = a
	}
	return s
}

// Managed reports whether the address belongs to this system's own accounts.
// The authorization guard refuses to authorize anything outside this set.
func (s *AccountSet) Managed(address string) bool {
	_, ok := s.byAddress[address]
	return ok
}

func (s *AccountSet) ByAddress(address string) (*Account, bool) {
	a, ok := s.byAddress[address]
	return a, ok
}

func (s *AccountSet) ByRole(role Role) (*Account, bool) {
	a, ok := s.byRole[role]
	return a, ok
}

func (s *AccountSet) All() []*Account {
	out := make([]*Account, 0, len(s.byAddress))
	for _, a := range s.byAddress {
		out = append(out, a)
	}
	return out
}
