package completion

import "fmt"

// NoResultsSentence is what the model is told to answer when the query yields
// nothing. It parses to zero candidates.
const NoResultsSentence = "Could not find any information with the provided query"

const promptTemplate = `Classify and structure the following query: '%s'.
Based on the query, return a list with up to three sections, including only the ones suitable for the query: Movie Titles, People (cast, crew or both) and Movie Genres.
Make sure every section label ends with a colon, and put each item on its own line.
Provide only the results without any additional text and do not add descriptions. Provide at least 10 items per list if you can, and avoid inaccurate information.
If you cannot find anything based on the query, or the query makes no sense, simply respond with '%s'.`

// Prompt builds the instruction sent for a search query.
func Prompt(query string) string {
	return fmt.Sprintf(promptTemplate, query, NoResultsSentence)
}
