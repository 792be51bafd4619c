package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LLLin000/paper-fetcher/internal/identifier"
)

func mustID(t *testing.T, raw string) identifier.Identifier {
	t.Helper()
	id, err := identifier.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", raw, err)
	}
	return id
}

func TestUnpaywallOpenAccessRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "" {
			t.Error("email query parameter missing")
		}
		w.Write([]byte(`{
			"is_oa": true,
			"title": "Quantum entanglement in photosynthesis",
			"journal_name": "Nature Physics",
			"year": 2023,
			"z_authors": [
				{"given": "Jane", "family": "Doe"},
				{"given": "", "family": "Smith"}
			],
			"best_oa_location": {
				"url_for_pdf": "",
				"url_for_landing_page": "https://europepmc.org/article/MED/1",
				"host_type": "repository",
				"repository_institution": "Europe PMC"
			},
			"oa_locations": [
				{"url_for_pdf": "https://europepmc.org/articles/PMC1?pdf=render"}
			]
		}`))
	}))
	defer srv.Close()

	p := NewUnpaywall("user@example.org", WithUnpaywallBaseURL(srv.URL))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "10.1038/nphys1234"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.Title != "Quantum entanglement in photosynthesis" {
		t.Errorf("Title = %q", rec.Title)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Jane Doe" || rec.Authors[1] != "Smith" {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if rec.OAURL != "https://europepmc.org/article/MED/1" {
		t.Errorf("OAURL = %q", rec.OAURL)
	}
	// Best location had no PDF; the mirror scan must find one.
	if rec.OAPDFURL != "https://europepmc.org/articles/PMC1?pdf=render" {
		t.Errorf("OAPDFURL = %q", rec.OAPDFURL)
	}
	if rec.Source != "repository" {
		t.Errorf("Source = %q", rec.Source)
	}
}

func TestUnpaywallClosedArticleStillCarriesMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"is_oa": false, "title": "Paywalled", "year": 2020}`))
	}))
	defer srv.Close()

	p := NewUnpaywall("", WithUnpaywallBaseURL(srv.URL))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "10.1016/j.cell.2020.01.001"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.OAPDFURL != "" || rec.OAURL != "" {
		t.Errorf("closed article has OA URLs: %q %q", rec.OAPDFURL, rec.OAURL)
	}
	if rec.Title != "Paywalled" || rec.Year != 2020 {
		t.Errorf("metadata not carried: %+v", rec)
	}
}

func TestUnpaywallNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewUnpaywall("", WithUnpaywallBaseURL(srv.URL))
	_, err := p.GetByIdentifier(context.Background(), mustID(t, "10.9999/nope"))
	if !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUnpaywallRejectsNonDOI(t *testing.T) {
	p := NewUnpaywall("")
	if _, err := p.GetByIdentifier(context.Background(), mustID(t, "12345678")); err != ErrWrongKind {
		t.Errorf("err = %v, want ErrWrongKind", err)
	}
}

func TestExtractArXivID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2301.08745", "2301.08745"},
		{"2301.08745v2", "2301.08745v2"},
		{"https://arxiv.org/abs/2301.08745", "2301.08745"},
		{"https://arxiv.org/pdf/2301.08745v1.pdf", "2301.08745v1"},
		{"hep-ph/0601001", "hep-ph/0601001"},
		{"10.48550/arXiv.2301.08745", "2301.08745"},
		{"10.1038/nphys1234", ""},
		{"not an id", ""},
	}
	for _, tt := range tests {
		if got := ExtractArXivID(tt.in); got != tt.want {
			t.Errorf("ExtractArXivID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestArXivPDFURL(t *testing.T) {
	if got := ArXivPDFURL("2301.08745v3"); got != "https://arxiv.org/pdf/2301.08745.pdf" {
		t.Errorf("ArXivPDFURL() = %q", got)
	}
}

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.08745v1</id>
    <published>2023-01-20T18:59:59Z</published>
    <title>Attention Is
 Not All You Need</title>
    <summary>We revisit the
 transformer architecture.</summary>
    <author><name>Alice Able</name></author>
    <author><name>Bob Baker</name></author>
  </entry>
</feed>`

func TestArXivLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_list"); got != "2301.08745" {
			t.Errorf("id_list = %q, want version stripped", got)
		}
		w.Write([]byte(arxivFixture))
	}))
	defer srv.Close()

	p := NewArXiv(WithArXivBaseURL(srv.URL))
	rec, err := p.Lookup(context.Background(), "2301.08745v1")
	if err != nil {
		t.Fatalf("Lookup(): %v", err)
	}
	if rec.Title != "Attention Is Not All You Need" {
		t.Errorf("Title = %q, newlines not collapsed", rec.Title)
	}
	if rec.Abstract != "We revisit the transformer architecture." {
		t.Errorf("Abstract = %q", rec.Abstract)
	}
	if len(rec.Authors) != 2 {
		t.Errorf("Authors = %v", rec.Authors)
	}
	if rec.Year != 2023 {
		t.Errorf("Year = %d", rec.Year)
	}
	if rec.OAPDFURL != "https://arxiv.org/pdf/2301.08745.pdf" {
		t.Errorf("OAPDFURL = %q", rec.OAPDFURL)
	}
}

func TestArXivLookupUnknownID(t *testing.T) {
	// The API answers unknown IDs with an entry that has no title.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><entry><id>x</id><title></title></entry></feed>`))
	}))
	defer srv.Close()

	p := NewArXiv(WithArXivBaseURL(srv.URL))
	if _, err := p.Lookup(context.Background(), "9999.99999"); !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

const pubmedFixture = `<?xml version="1.0"?>
<PubmedArticleSet><PubmedArticle>
  <Journal><Title>Cell</Title></Journal>
  <ArticleTitle>CRISPR screens in primary cells</ArticleTitle>
  <Year>2024</Year>
  <Abstract><AbstractText Label="BACKGROUND">Primary cells resist editing.</AbstractText></Abstract>
  <AuthorList>
    <Author><LastName>Chen</LastName><ForeName>Wei</ForeName></Author>
    <Author><LastName>Garcia</LastName><ForeName>Maria</ForeName></Author>
  </AuthorList>
  <ArticleIdList>
    <ArticleId IdType="pubmed">38123456</ArticleId>
    <ArticleId IdType="doi">10.1016/J.CELL.2024.01.001</ArticleId>
  </ArticleIdList>
</PubmedArticle></PubmedArticleSet>`

func TestPubMedLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("db"); got != "pubmed" {
			t.Errorf("db = %q", got)
		}
		w.Write([]byte(pubmedFixture))
	}))
	defer srv.Close()

	p := NewPubMed("user@example.org", WithPubMedBaseURL(srv.URL))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "38123456"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.DOI != "10.1016/j.cell.2024.01.001" {
		t.Errorf("DOI = %q, want lowercased", rec.DOI)
	}
	if rec.Title != "CRISPR screens in primary cells" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Journal != "Cell" || rec.Year != 2024 {
		t.Errorf("Journal/Year = %q/%d", rec.Journal, rec.Year)
	}
	if rec.Abstract != "Primary cells resist editing." {
		t.Errorf("Abstract = %q", rec.Abstract)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Chen Wei" {
		t.Errorf("Authors = %v", rec.Authors)
	}
}

func TestPubMedResolveDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pubmedFixture))
	}))
	defer srv.Close()

	p := NewPubMed("", WithPubMedBaseURL(srv.URL))
	doi, err := p.ResolveDOI(context.Background(), "38123456")
	if err != nil {
		t.Fatalf("ResolveDOI(): %v", err)
	}
	if doi != "10.1016/j.cell.2024.01.001" {
		t.Errorf("doi = %q", doi)
	}
}

func TestPubMedNoDOI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><PubmedArticleSet></PubmedArticleSet>`))
	}))
	defer srv.Close()

	p := NewPubMed("", WithPubMedBaseURL(srv.URL))
	if _, err := p.ResolveDOI(context.Background(), "38123456"); !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEuropePMCOpenAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "PMID:38123456" {
			t.Errorf("query = %q", got)
		}
		w.Write([]byte(`{"resultList": {"result": [{
			"pmid": "38123456",
			"pmcid": "PMC9876543",
			"doi": "10.1186/S13059-024-0001-1",
			"title": "Long-read assembly",
			"authorString": "Chen W, Garcia M.",
			"journalTitle": "Genome Biol",
			"pubYear": "2024",
			"isOpenAccess": "Y"
		}]}}`))
	}))
	defer srv.Close()

	p := NewEuropePMC(WithEuropePMCBaseURL(srv.URL))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "38123456"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.DOI != "10.1186/s13059-024-0001-1" {
		t.Errorf("DOI = %q", rec.DOI)
	}
	if rec.OAURL != "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/" {
		t.Errorf("OAURL = %q", rec.OAURL)
	}
	if rec.OAPDFURL != "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/pdf/" {
		t.Errorf("OAPDFURL = %q", rec.OAPDFURL)
	}
	if rec.Year != 2024 {
		t.Errorf("Year = %d", rec.Year)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Chen W" {
		t.Errorf("Authors = %v", rec.Authors)
	}
}

func TestEuropePMCClosedArticleHasNoOAURLs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultList": {"result": [{"pmid": "1", "title": "t", "isOpenAccess": "N"}]}}`))
	}))
	defer srv.Close()

	p := NewEuropePMC(WithEuropePMCBaseURL(srv.URL))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "12345678"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.OAURL != "" || rec.OAPDFURL != "" {
		t.Errorf("closed article has OA URLs: %+v", rec)
	}
}

func TestEuropePMCMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultList": {"result": []}}`))
	}))
	defer srv.Close()

	p := NewEuropePMC(WithEuropePMCBaseURL(srv.URL))
	if _, err := p.GetByIdentifier(context.Background(), mustID(t, "12345678")); !IsNotFound(err) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSemanticScholarSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("year"); got != "2020-2024" {
			t.Errorf("year filter = %q", got)
		}
		w.Write([]byte(`{"total": 1, "data": [{
			"paperId": "abc123",
			"title": "Sparse attention",
			"abstract": "We prune heads.",
			"year": 2022,
			"url": "https://www.semanticscholar.org/paper/abc123",
			"authors": [{"name": "Alice Able"}],
			"externalIds": {"DOI": "10.1109/TPAMI.2022.1", "ArXiv": "2203.00001"},
			"journal": {"name": "TPAMI"}
		}]}`))
	}))
	defer srv.Close()

	p := NewSemanticScholar(WithSemanticScholarBaseURL(srv.URL))
	records, err := p.Search(context.Background(), "sparse attention", 10, "2020-2024")
	if err != nil {
		t.Fatalf("Search(): %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	rec := records[0]
	if rec.DOI != "10.1109/tpami.2022.1" {
		t.Errorf("DOI = %q, want lowercased", rec.DOI)
	}
	if rec.ArXivID != "2203.00001" || rec.Journal != "TPAMI" {
		t.Errorf("record = %+v", rec)
	}
}

func TestSemanticScholarLookupSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "sekrit" {
			t.Errorf("X-Api-Key = %q", got)
		}
		w.Write([]byte(`{"paperId": "abc", "title": "T", "year": 2021, "externalIds": {}, "journal": {}}`))
	}))
	defer srv.Close()

	p := NewSemanticScholar(WithSemanticScholarBaseURL(srv.URL), WithSemanticScholarAPIKey("sekrit"))
	rec, err := p.GetByIdentifier(context.Background(), mustID(t, "10.1109/x.1"))
	if err != nil {
		t.Fatalf("GetByIdentifier(): %v", err)
	}
	if rec.Title != "T" {
		t.Errorf("Title = %q", rec.Title)
	}
}

func TestSemanticScholarRateLimitExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewSemanticScholar(WithSemanticScholarBaseURL(srv.URL))
	p.client.maxRetries = 0
	if _, err := p.Search(context.Background(), "q", 5, ""); !IsRateLimited(err) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestPublisherURL(t *testing.T) {
	tests := []struct {
		doi  string
		want string
	}{
		{"10.1016/j.cell.2024.01.001", "https://www.sciencedirect.com/science/article/pii/J.CELL.2024.01.001"},
		{"10.1038/s41586-024-0001-1", "https://www.nature.com/articles/s41586-024-0001-1"},
		{"10.1002/anie.202400001", "https://onlinelibrary.wiley.com/doi/10.1002/anie.202400001"},
		{"10.1021/jacs.4c00001", "https://pubs.acs.org/doi/10.1021/jacs.4c00001"},
		{"10.9999/unknown.1", ""},
	}
	for _, tt := range tests {
		_, got, ok := PublisherURL(tt.doi)
		if tt.want == "" {
			if ok {
				t.Errorf("PublisherURL(%q) = %q, want miss", tt.doi, got)
			}
			continue
		}
		if !ok || got != tt.want {
			t.Errorf("PublisherURL(%q) = %q, want %q", tt.doi, got, tt.want)
		}
	}
}

func TestResolverFollowsDOIOrg(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/landing" {
			w.Write([]byte("article"))
			return
		}
		http.Redirect(w, r, srvURL+"/landing", http.StatusFound)
	}))
	defer srv.Close()
	srvURL = srv.URL

	res := NewResolver(WithResolverBaseURL(srv.URL))
	got, err := res.Resolve(context.Background(), "10.5555/unmapped.1")
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if got != srvURL+"/landing" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestResolverSkipsDOIOrgForKnownPrefix(t *testing.T) {
	// No server at all: a mapped prefix must not touch the network.
	res := NewResolver(WithResolverBaseURL("http://127.0.0.1:0"))
	got, err := res.Resolve(context.Background(), "10.1038/s41586-024-0001-1")
	if err != nil {
		t.Fatalf("Resolve(): %v", err)
	}
	if got != "https://www.nature.com/articles/s41586-024-0001-1" {
		t.Errorf("Resolve() = %q", got)
	}
}
