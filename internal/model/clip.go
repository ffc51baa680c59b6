package model

// RawClipRecord 외부 구문검색 응답에서 디코딩된 원시 클립 한 건
type RawClipRecord struct {
	Name      string `json:"name"`       // movie name with the [HH:MM:SS] marker removed
	StartTime string `json:"start_time"` // "00:00:00" when the marker was absent
	SourceURL string `json:"source_url"`
	VideoURL  string `json:"video_url"`
	Text      string `json:"text"` // the dialogue line
}

// ParsedTitle parse_movie_title 결과
type ParsedTitle struct {
	Title         string
	OriginalTitle string
	ReleaseYear   string
}

// ClipResult 검색 응답에 내려가는 통합 클립 레코드
type ClipResult struct {
	DialogueID  uint    `json:"dialogue_id"`
	MovieTitle  string  `json:"movie_title"`
	Director    string  `json:"director"`
	ReleaseYear string  `json:"release_year"`
	Country     string  `json:"country"`
	PosterURL   string  `json:"poster_url"`
	PosterImage string  `json:"poster_image,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Text        string  `json:"text"`
	TextKo      string  `json:"text_ko,omitempty"`
	StartTime   string  `json:"start_time"`
	VideoURL    string  `json:"video_url"`
	PlayCount   int     `json:"play_count"`
	DataQuality DataQuality `json:"data_quality"`
}

// ClipFromDialogue flattens a dialogue with its owning movie.
func ClipFromDialogue(d *Dialogue) ClipResult {
	clip := ClipResult{
		DialogueID: d.ID,
		Text:       d.Phrase,
		TextKo:     d.PhraseKo,
		StartTime:  d.StartTime,
		VideoURL:   d.VideoURL,
		PlayCount:  d.PlayCount,
	}
	if d.Movie != nil {
		clip.MovieTitle = d.Movie.Title
		clip.Director = d.Movie.Director
		clip.ReleaseYear = d.Movie.ReleaseYear
		clip.Country = d.Movie.Country
		clip.PosterURL = d.Movie.PosterURL
		clip.PosterImage = d.Movie.PosterImage
		clip.Rating = d.Movie.Rating
		clip.DataQuality = d.Movie.DataQuality
	}
	return clip
}
