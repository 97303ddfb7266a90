package domain

// SessionChannel names the live-update channel for a chat session.
func SessionChannel(id SessionID) string {
	return "sessions/" + string(id)
}

// EntityChannel names the live-update channel for a collaboration
// entity.
func EntityChannel(kind CollabKind, id EntityID) string {
	if kind == KindCopilotSession {
		return "copilot-sessions/" + string(id)
	}
	return "projects/" + string(id)
}
