package index

// Posting records one document's occurrences of a term.
type Posting struct {
	URL       string `json:"u"`
	Frequency int    `json:"f"`
}

type PostingList []Posting

// TermEntry pairs a dictionary term with its postings, sorted by URL.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// DocEntry is the stored form of an indexed document: the original topics
// plus the token count the ranker may need.
type DocEntry struct {
	URL    string   `json:"u"`
	Topics []string `json:"t"`
	Length int      `json:"l"`
}
