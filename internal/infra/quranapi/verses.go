package quranapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/luminousverses/luminous/internal/domain/quran"
)

type verseItem struct {
	ID            int    `json:"id"`
	SurahID       int    `json:"surahId"`
	NumberInSurah int    `json:"numberInSurah"`
	Text          string `json:"text"`
}

type translationItem struct {
	NumberInSurah int    `json:"numberInSurah"`
	Translation   string `json:"translation"`
}

type translatedVerse struct {
	ID          *int   `json:"id"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

func translatorOrDefault(t string) string {
	if t == "" {
		return DefaultTranslator
	}
	return t
}

// FetchVerses returns every verse of a chapter merged with its translation.
// The Arabic text and the translation are fetched concurrently; a verse with
// no matching translation gets an empty one.
func (c *Client) FetchVerses(ctx context.Context, surahID int, translator string) ([]quran.Verse, error) {
	translator = translatorOrDefault(translator)
	surah := strconv.Itoa(surahID)

	var (
		arabic       []verseItem
		translations []translationItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		op := "fetch verses for surah " + surah
		body, err := c.getJSON(gctx, op, "/api/get-verses", url.Values{"surah": {surah}}, nil)
		if err != nil {
			return err
		}
		return decodeArray(op, body, &arabic)
	})
	g.Go(func() error {
		op := "fetch translations for surah " + surah
		body, err := c.getJSON(gctx, op, "/api/get-translation-verses",
			url.Values{"surah": {surah}, "translator": {translator}}, nil)
		if err != nil {
			return err
		}
		return decodeArray(op, body, &translations)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byNumber := lo.SliceToMap(translations, func(t translationItem) (int, string) {
		return t.NumberInSurah, t.Translation
	})

	return lo.Map(arabic, func(v verseItem, _ int) quran.Verse {
		return quran.Verse{
			ID:            v.ID,
			SurahID:       v.SurahID,
			NumberInSurah: v.NumberInSurah,
			Text:          v.Text,
			Translation:   byNumber[v.NumberInSurah],
		}
	}), nil
}

// FetchTranslatedVerse returns a single verse with its translation.
func (c *Client) FetchTranslatedVerse(ctx context.Context, surahID, ayah int, translator string) (quran.Verse, error) {
	op := fmt.Sprintf("fetch verse %d:%d", surahID, ayah)
	query := url.Values{
		"surah":      {strconv.Itoa(surahID)},
		"ayah":       {strconv.Itoa(ayah)},
		"translator": {translatorOrDefault(translator)},
	}

	notFound := fmt.Errorf("verse %d:%d not found: %w", surahID, ayah, ErrVerseNotFound)
	body, err := c.getJSON(ctx, op, "/api/get-translated-verse", query, notFound)
	if err != nil {
		return quran.Verse{}, err
	}

	var data *translatedVerse
	if err := json.Unmarshal(body, &data); err != nil {
		return quran.Verse{}, fmt.Errorf("%s: %w: %v", op, ErrInvalidPayload, err)
	}
	if data == nil || data.Text == "" {
		return quran.Verse{}, fmt.Errorf("%s: missing text: %w", op, ErrInvalidPayload)
	}

	id := lo.FromPtr(data.ID)
	if id == 0 {
		// The API omits ids for some verses; derive one from the reference.
		id, _ = strconv.Atoi(fmt.Sprintf("%d%d", surahID, ayah))
	}

	return quran.Verse{
		ID:            id,
		SurahID:       surahID,
		NumberInSurah: ayah,
		Text:          data.Text,
		Translation:   data.Translation,
	}, nil
}
