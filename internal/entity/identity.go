package entity

// Identity names a user across the federation. The (Name, Host) pair is the
// federation-wide key; surrogate UUIDs are host-local and never cross hosts.
type Identity struct {
	Name string `json:"name"`
	Host string `json:"host"`
}

func (i Identity) String() string {
	return i.Name + "@" + i.Host
}
