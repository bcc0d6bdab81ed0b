package generation

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/novelforge/novelforge/internal/chapters"
	"github.com/novelforge/novelforge/internal/characters"
	"github.com/novelforge/novelforge/internal/novels"
	"github.com/novelforge/novelforge/internal/worldnotes"
)

// NovelReader loads a novel owned by a user.
type NovelReader interface {
	Get(ctx context.Context, userID, id int64) (novels.Novel, error)
}

// ChapterLister lists a novel's chapters in order.
type ChapterLister interface {
	List(ctx context.Context, userID, novelID int64) ([]chapters.Chapter, error)
}

// CharacterLister lists a novel's cast.
type CharacterLister interface {
	List(ctx context.Context, userID, novelID int64) ([]characters.Character, error)
}

// NoteLister lists a novel's world notes.
type NoteLister interface {
	List(ctx context.Context, userID, novelID int64, req worldnotes.ListRequest) ([]worldnotes.Note, error)
}

// Sources gathers everything the prompt draws on.
type Sources struct {
	Novels     NovelReader
	Chapters   ChapterLister
	Characters CharacterLister
	Notes      NoteLister
}

// StoryContext is the material handed to the model.
type StoryContext struct {
	Novel      novels.Novel
	Chapters   []chapters.Chapter
	Characters []characters.Character
	Notes      []worldnotes.Note
}

// Load fetches the story context concurrently. The first failure cancels the
// remaining loads.
func (s Sources) Load(ctx context.Context, userID, novelID int64) (StoryContext, error) {
	var sc StoryContext
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sc.Novel, err = s.Novels.Get(gctx, userID, novelID)
		return err
	})
	g.Go(func() error {
		var err error
		sc.Chapters, err = s.Chapters.List(gctx, userID, novelID)
		return err
	})
	g.Go(func() error {
		var err error
		sc.Characters, err = s.Characters.List(gctx, userID, novelID)
		return err
	})
	g.Go(func() error {
		var err error
		sc.Notes, err = s.Notes.List(gctx, userID, novelID, worldnotes.ListRequest{})
		return err
	})
	if err := g.Wait(); err != nil {
		return StoryContext{}, err
	}
	return sc, nil
}

const (
	defaultTargetWords = 1500
	maxChapterRecaps   = 20
	maxNotes           = 30
	recapRunes         = 400
	systemPrompt       = "You are a fiction co-author. Continue the user's novel with the next chapter. " +
		"Stay consistent with the established cast, world and events. " +
		"Start your reply with a single line of the form 'Title: <chapter title>' followed by the chapter prose. " +
		"Do not add commentary."
)

// BuildPrompt renders the story context and the author's instructions.
func BuildPrompt(sc StoryContext, instructions string, targetWords int) Prompt {
	if targetWords <= 0 {
		targetWords = defaultTargetWords
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Novel: %s\n", sc.Novel.Title)
	if sc.Novel.Genre != "" {
		fmt.Fprintf(&b, "Genre: %s\n", sc.Novel.Genre)
	}
	if sc.Novel.Synopsis != "" {
		fmt.Fprintf(&b, "Synopsis: %s\n", clip(sc.Novel.Synopsis, 2000))
	}

	if len(sc.Characters) > 0 {
		b.WriteString("\nCharacters:\n")
		for _, c := range sc.Characters {
			fmt.Fprintf(&b, "- %s (%s)", c.Name, c.Role)
			if d := strings.TrimSpace(c.Description); d != "" {
				fmt.Fprintf(&b, ": %s", clip(d, recapRunes))
			}
			if tr := strings.TrimSpace(c.Traits); tr != "" {
				fmt.Fprintf(&b, " Traits: %s.", clip(tr, 200))
			}
			b.WriteString("\n")
		}
	}

	if len(sc.Notes) > 0 {
		b.WriteString("\nWorld:\n")
		notes := sc.Notes
		if len(notes) > maxNotes {
			notes = notes[:maxNotes]
		}
		for _, n := range notes {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", n.Category, n.Title, clip(n.Content, recapRunes))
		}
	}

	if len(sc.Chapters) > 0 {
		b.WriteString("\nStory so far:\n")
		recaps := sc.Chapters
		if len(recaps) > maxChapterRecaps {
			recaps = recaps[len(recaps)-maxChapterRecaps:]
		}
		for _, ch := range recaps {
			fmt.Fprintf(&b, "%d. %s: %s\n", ch.Order, ch.Title, recap(ch))
		}
	}

	fmt.Fprintf(&b, "\nWrite chapter %d in about %d words.\n", len(sc.Chapters)+1, targetWords)
	if in := strings.TrimSpace(instructions); in != "" {
		fmt.Fprintf(&b, "Author's instructions: %s\n", in)
	}

	maxTokens := targetWords * 2
	if maxTokens > 8192 {
		maxTokens = 8192
	}
	return Prompt{System: systemPrompt, User: b.String(), MaxTokens: maxTokens}
}

// ParseDraft splits a reply into a title and body. The fallback title is used
// when the reply has no title line.
func ParseDraft(reply, fallback string) (string, string) {
	text := strings.TrimSpace(reply)
	first, rest, found := strings.Cut(text, "\n")
	line := strings.TrimSpace(first)
	for _, prefix := range []string{"Title:", "title:", "#"} {
		if strings.HasPrefix(line, prefix) {
			title := strings.TrimSpace(strings.TrimLeft(strings.TrimPrefix(line, prefix), "# "))
			if title == "" {
				title = fallback
			}
			if !found {
				return title, ""
			}
			return title, strings.TrimSpace(rest)
		}
	}
	return fallback, text
}

func recap(ch chapters.Chapter) string {
	if s := strings.TrimSpace(ch.Summary); s != "" {
		return clip(s, recapRunes)
	}
	words := strings.Fields(ch.Content)
	if len(words) > 60 {
		return strings.Join(words[:60], " ") + " ..."
	}
	return strings.Join(words, " ")
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
