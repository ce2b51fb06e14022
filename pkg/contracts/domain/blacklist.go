package domain

// Blacklist is the single global deny-list record. Presence of an identity,
// address, or fingerprint here vetoes validation unconditionally, regardless
// of license state.
type Blacklist struct {
	DiscordIDs []string `json:"discordIds"`
	IPs        []string `json:"ips,omitempty"`
	HWIDs      []string `json:"hwids,omitempty"`
}

// ContainsIdentity reports whether the identity is globally denied.
func (b *Blacklist) ContainsIdentity(discordID string) bool {
	return contains(b.DiscordIDs, discordID)
}

// ContainsIP reports whether the address is globally denied.
func (b *Blacklist) ContainsIP(ip string) bool {
	return ip != "" && contains(b.IPs, ip)
}

// ContainsHWID reports whether the fingerprint is globally denied.
func (b *Blacklist) ContainsHWID(hwid string) bool {
	return hwid != "" && contains(b.HWIDs, hwid)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
