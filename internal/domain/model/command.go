package model

// CommandKind enumerates the stimuli a presentation layer can send to a session.
type CommandKind string

// Supported command kinds.
const (
	CommandVote CommandKind = "vote"
	CommandSkip CommandKind = "skip"
)

// Command is one stimulus flowing through the serial command pipeline.
type Command struct {
	ID     string      // correlation id for logs
	Kind   CommandKind // vote or skip
	Winner int         // 0 or 1, only for votes
	VoteID string      // client idempotency key, optional
	Expect Pair        // pair the vote was cast on; zero means the current pair
	Reply  chan Result // receives exactly one Result; must be buffered
}

// Result is the outcome of a processed command: the next pair on success.
type Result struct {
	Left  ItemView
	Right ItemView
	Err   error
}
