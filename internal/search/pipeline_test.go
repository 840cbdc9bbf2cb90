package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"popcorn/internal/utils"
)

type staticCompleter struct {
	text string
	err  error
}

func (c staticCompleter) Complete(context.Context, string) (string, error) {
	return c.text, c.err
}

func TestPipelineRun(t *testing.T) {
	logger := utils.NewDiscardLogger()
	p := NewPipeline(staticCompleter{text: "Movie Titles:\nDune\nMadonna\n\nPeople:\nDenis Villeneuve"},
		NewResolver(testLookup(), 4, logger), logger)

	res := p.Run(context.Background(), "villeneuve")

	assert.Equal(t, "villeneuve", res.Query)
	assert.Equal(t, []string{"Dune", "Madonna"}, res.Candidates.MovieTitles)
	assert.Equal(t, []int{438631}, ids(res.Movies))
	assert.Equal(t, []int{3125, 137427}, ids(res.People))
	assert.Equal(t, Disclaimer, res.Disclaimer)
}

func TestPipelineCompletionFailure(t *testing.T) {
	logger := utils.NewDiscardLogger()
	p := NewPipeline(staticCompleter{err: errors.New("completion HTTP 500")}, NewResolver(testLookup(), 4, logger), logger)

	res := p.Run(context.Background(), "anything")
	assert.Empty(t, res.Movies)
	assert.Empty(t, res.People)
	assert.NotNil(t, res.Movies)
}
