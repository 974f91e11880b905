package web

// GameCard is one entry in the rendered catalog.
type GameCard struct {
	Title        string
	Slug         string
	Description  string
	Image        string
	TotalPlayers int64
	ScoreCount   int64
}

// PlayData renders the embedded play page for one game.
type PlayData struct {
	Title       string
	Slug        string
	Description string
	EntryPath   string
	VersionID   uint
	Version     string
}
