package main

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Run with TMDB_BASE_URL=http://localhost:8090/3 OPENAI_BASE_URL=http://localhost:8090/v1
// and any non-empty api keys.

var quotedQuery = regexp.MustCompile(`'([^']*)'`)

var cannedTitles = []string{"Dune", "Arrival", "Blade Runner 2049", "Sicario", "Prisoners", "Enemy", "Incendies", "Interstellar", "Contact", "Solaris"}
var cannedPeople = []string{"Denis Villeneuve", "Roger Deakins", "Amy Adams", "Jake Gyllenhaal", "Hans Zimmer"}

func main() {
	http.HandleFunc("/v1/chat/completions", completionHandler)
	http.HandleFunc("/3/search/movie", searchMovieHandler)
	http.HandleFunc("/3/search/person", searchPersonHandler)
	http.HandleFunc("/3/genre/movie/list", genresHandler)
	http.HandleFunc("/3/", listHandler)

	fmt.Println("Fake upstream server starting on :8090")
	fmt.Println("TMDB under /3, chat completions under /v1")
	log.Fatal(http.ListenAndServe(":8090", nil))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// stableID gives every title the same id across requests.
func stableID(s string) int {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(s)))
	return int(h.Sum32()%900000) + 1000
}

func completionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}

	query := ""
	if m := quotedQuery.FindStringSubmatch(req.Messages[0].Content); len(m) > 1 {
		query = m[1]
	}
	log.Printf("Completion for query: '%s'", query)

	// slow enough to exercise debouncing and stale discards
	time.Sleep(time.Duration(200+rand.Intn(800)) * time.Millisecond)

	if strings.Contains(strings.ToLower(query), "nothing") {
		writeCompletion(w, "Could not find any information with the provided query")
		return
	}

	var b strings.Builder
	b.WriteString("Movie Titles:\n")
	for i, title := range shuffled(cannedTitles) {
		fmt.Fprintf(&b, "%d. %s (%d)\n", i+1, title, 1990+rand.Intn(35))
	}
	b.WriteString("\nPeople:\n")
	for _, name := range shuffled(cannedPeople) {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\nMovie Genres:\n- Science Fiction\n- Drama\n- Thriller")
	writeCompletion(w, b.String())
}

func writeCompletion(w http.ResponseWriter, text string) {
	writeJSON(w, map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
}

func shuffled(values []string) []string {
	out := append([]string(nil), values...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func searchMovieHandler(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("query")
	log.Printf("Movie lookup: '%s'", title)

	// roughly one in ten lookups finds nothing
	if rand.Intn(10) == 0 {
		writeJSON(w, map[string]interface{}{"page": 1, "results": []interface{}{}})
		return
	}
	writeJSON(w, map[string]interface{}{
		"page": 1,
		"results": []map[string]interface{}{
			fakeMovie(stableID(title), title),
		},
	})
}

func searchPersonHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("query")
	log.Printf("Person lookup: '%s'", name)

	writeJSON(w, map[string]interface{}{
		"page": 1,
		"results": []map[string]interface{}{{
			"id":                   stableID(name),
			"name":                 name,
			"gender":               rand.Intn(2) + 1,
			"known_for_department": "Directing",
			"profile_path":         "/" + strconv.Itoa(stableID(name)) + ".jpg",
		}},
	})
}

func genresHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"genres": []map[string]interface{}{
			{"id": 28, "name": "Action"},
			{"id": 18, "name": "Drama"},
			{"id": 878, "name": "Science Fiction"},
			{"id": 53, "name": "Thriller"},
		},
	})
}

// listHandler answers every other catalogue path with a page of movies, or a
// single movie for /3/movie/{id}.
func listHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("Catalogue request: %s", r.URL.String())

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) == 3 && parts[1] == "movie" {
		if id, err := strconv.Atoi(parts[2]); err == nil {
			movie := fakeMovie(id, cannedTitles[id%len(cannedTitles)])
			movie["runtime"] = 90 + rand.Intn(90)
			writeJSON(w, movie)
			return
		}
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	var results []map[string]interface{}
	for _, title := range shuffled(cannedTitles) {
		results = append(results, fakeMovie(stableID(title), title))
	}
	writeJSON(w, map[string]interface{}{
		"page":          page,
		"results":       results,
		"total_pages":   5,
		"total_results": 5 * len(results),
	})
}

func fakeMovie(id int, title string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"title":        title,
		"overview":     "A fake overview for " + title + ".",
		"release_date": fmt.Sprintf("%d-0%d-1%d", 1990+rand.Intn(35), rand.Intn(9)+1, rand.Intn(9)),
		"poster_path":  "/" + strconv.Itoa(id) + ".jpg",
		"vote_average": float64(rand.Intn(60)+40) / 10,
		"vote_count":   rand.Intn(20000),
		"popularity":   rand.Float64() * 100,
		"genre_ids":    []int{878, 18},
	}
}
