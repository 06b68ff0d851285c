package identification_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"anitag/internal/anime"
	"anitag/internal/identification"
	"anitag/internal/identification/catalog"
	"anitag/internal/identification/encyclopedia"
	"anitag/internal/identification/songdb"
)

const jikanSearch = `{"data":[{"mal_id":16498,"title":"Shingeki no Kyojin","title_english":"Attack on Titan",
"title_japanese":"進撃の巨人","type":"TV","year":2013,"season":"spring","status":"Finished Airing",
"images":{"jpg":{"image_url":"https://cdn.example/16498.jpg"}},
"titles":[{"type":"Default","title":"Shingeki no Kyojin"},{"type":"English","title":"Attack on Titan"}],
"aired":{"from":"2013-04-07T00:00:00+00:00","to":"2013-09-29T00:00:00+00:00"},
"genres":[{"name":"Action"}],"explicit_genres":[],"themes":[]}]}`

const annDetails = `<ann><anime id="14536" name="Attack on Titan" type="TV">
<info type="Alternative title" lang="JA">進撃の巨人</info>
<info type="Vintage">2013-04-07 to 2013-09-28</info>
</anime></ann>`

const anisongRows = `[
{"annId":14536,"animeENName":"Attack on Titan","animeJPName":"Shingeki no Kyojin","songType":"Opening 1","songName":"Guren no Yumiya","songArtist":"Linked Horizon"},
{"annId":14536,"animeENName":"Attack on Titan","animeJPName":"Shingeki no Kyojin","songType":"Opening 2","songName":"Jiyuu no Tsubasa","songArtist":"Linked Horizon"},
{"annId":14536,"animeENName":"Attack on Titan","animeJPName":"Shingeki no Kyojin","songType":"Ending 1","songName":"Utsukushiki Zankoku na Sekai","songArtist":"Yoko Hikasa"}
]`

func TestEngineResolvesAttackOnTitanEndToEnd(t *testing.T) {
	var annRequests int
	mux := http.NewServeMux()
	mux.HandleFunc("/jikan/anime", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Attack on Titan" {
			t.Errorf("unexpected catalog query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(jikanSearch))
	})
	mux.HandleFunc("/jikan/anime/16498/full", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"mal_id":16498,"external":[{"name":"Official Site","url":"https://shingeki.tv"}]}}`))
	})
	mux.HandleFunc("/ann/api.xml", func(w http.ResponseWriter, r *http.Request) {
		annRequests++
		if got := r.URL.Query()["anime"]; len(got) != 1 || got[0] != "14536" {
			t.Errorf("unexpected encyclopedia ids %v", got)
		}
		_, _ = w.Write([]byte(annDetails))
	})
	mux.HandleFunc("/songdb/search_request", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(anisongRows))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	catalogClient, err := catalog.New(server.URL + "/jikan")
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	annClient, err := encyclopedia.New(server.URL + "/ann/api.xml")
	if err != nil {
		t.Fatalf("encyclopedia.New: %v", err)
	}
	songClient, err := songdb.New(server.URL + "/songdb")
	if err != nil {
		t.Fatalf("songdb.New: %v", err)
	}
	snapshot, err := encyclopedia.ParseSnapshot(strings.NewReader(`<report>
<item><id>14536</id><type>TV</type><name>Attack on Titan</name><vintage>2013-04-07</vintage></item>
<item><id>17000</id><type>OAV</type><name>Attack on Titan: Lost Girls</name><vintage>2017-12-08</vintage></item>
</report>`))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	engine := identification.NewEngine(
		catalog.NewResolver(catalogClient),
		encyclopedia.NewResolver(annClient, snapshot, nil, encyclopedia.WithMaxMatches(1)),
		songdb.NewResolver(songClient, songdb.NewDenylist("Dub Singer")),
	)

	result, err := engine.Resolve(context.Background(), "Attack on Titan", anime.TrackRequirement{Opening: 1})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !result.Resolved() {
		t.Fatalf("expected resolution, got %+v", result)
	}
	record := result.Anime
	if record.MalID != 16498 || record.CrossRefID != 14536 || record.Title != "Shingeki no Kyojin" {
		t.Fatalf("unexpected record %+v", record)
	}
	if annRequests != 1 {
		t.Fatalf("expected one encyclopedia request, got %d", annRequests)
	}
	song, ok := record.Music.Track(anime.Opening, 1)
	if !ok || song.Title != "Guren no Yumiya" || song.Number != 1 {
		t.Fatalf("unexpected opening 1: %+v (ok=%v)", song, ok)
	}
	if record.Genres[0] != "Anisong" {
		t.Fatalf("unexpected genres %v", record.Genres)
	}
}
