package kafka

const (
	TopicPlayerJoined   = "lobby.player_joined"
	TopicPlayerLeft     = "lobby.player_left"
	TopicDraftStarted   = "lobby.draft_started"
	TopicPickMade       = "lobby.pick_made"
	TopicPickExpired    = "lobby.pick_expired"
	TopicDraftCompleted = "lobby.draft_completed"
	TopicDraftDiverged  = "lobby.draft_diverged"

	TopicLobbyClosed = "lobby.closed"
)
