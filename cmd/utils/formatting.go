package utils

// PresenceIcon marks a user as online or offline in tables.
func PresenceIcon(online bool) string {
	if online {
		return "🟢"
	}
	return "⚪"
}
