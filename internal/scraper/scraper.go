package scraper

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Kind is the payload shape a source serves.
type Kind int

const (
	KindHTML Kind = iota // listing page made of challenge tiles
	KindJSON             // {"hackathons": [...]} API document
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return KindHTML, nil
	case "json":
		return KindJSON, nil
	default:
		return 0, eris.Errorf("unknown source kind %q", s)
	}
}

// Source is one listing endpoint.
type Source struct {
	Name string
	Kind Kind
	URL  string
}

// NewSource derives a name from the URL host and kind.
func NewSource(kind Kind, rawURL string) Source {
	name := kind.String()
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host + "/" + kind.String()
	}
	return Source{Name: name, Kind: kind, URL: rawURL}
}

// RawListing is one external unit: exactly one of Tile or Object is set,
// according to Kind.
type RawListing struct {
	Kind    Kind
	Tile    *goquery.Selection
	Object  json.RawMessage
	BaseURL *url.URL // used to resolve relative tile links
}

const tileSelector = "div.challenge-listing"

// ParsePayload splits a fetched body into raw listings. A body that does not
// have the expected shape is a decode FetchError.
func ParsePayload(src Source, body []byte) ([]RawListing, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, &FetchError{Kind: FetchDecode, URL: src.URL, Err: eris.Wrap(err, "parse source url")}
	}

	switch src.Kind {
	case KindHTML:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, &FetchError{Kind: FetchDecode, URL: src.URL, Err: eris.Wrap(err, "parse html")}
		}
		tiles := doc.Find(tileSelector)
		out := make([]RawListing, 0, tiles.Length())
		tiles.Each(func(_ int, s *goquery.Selection) {
			out = append(out, RawListing{Kind: KindHTML, Tile: s, BaseURL: base})
		})
		return out, nil

	case KindJSON:
		var doc struct {
			Hackathons *[]json.RawMessage `json:"hackathons"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, &FetchError{Kind: FetchDecode, URL: src.URL, Err: eris.Wrap(err, "decode json")}
		}
		if doc.Hackathons == nil {
			return nil, &FetchError{Kind: FetchDecode, URL: src.URL, Err: eris.New("decode json: missing hackathons array")}
		}
		out := make([]RawListing, 0, len(*doc.Hackathons))
		for _, obj := range *doc.Hackathons {
			out = append(out, RawListing{Kind: KindJSON, Object: obj, BaseURL: base})
		}
		return out, nil

	default:
		return nil, eris.Errorf("unsupported source kind %v", src.Kind)
	}
}
