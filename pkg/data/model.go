package data

// ConnectorID tags an entity with the connector that produced it.
type ConnectorID string

const (
	Manganato ConnectorID = "manganel"
)

// Manga is a catalog entry. Two mangas are the same entry when their URLs match.
type Manga struct {
	URL       string      `json:"url"`
	Title     string      `json:"title"`
	IconURL   string      `json:"icon_url"`
	Connector ConnectorID `json:"connector"`
}

func (m Manga) Key() string { return m.URL }

func (m Manga) Equal(other Manga) bool { return m.URL == other.URL }

type Chapter struct {
	URL       string      `json:"url"`
	Title     string      `json:"title"`
	Connector ConnectorID `json:"connector"`
	Manga     Manga       `json:"manga"`
}

func (c Chapter) Key() string { return c.URL }

func (c Chapter) Equal(other Chapter) bool { return c.URL == other.URL }

// Page is a single chapter image. Referer must be sent when fetching URL.
type Page struct {
	URL       string      `json:"url"`
	Referer   string      `json:"referer"`
	Connector ConnectorID `json:"connector"`
}
