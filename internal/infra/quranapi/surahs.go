package quranapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/samber/lo"

	"github.com/luminousverses/luminous/internal/domain/quran"
)

// surahItem is one element of the surah-list metadata response.
type surahItem struct {
	Number int    `json:"number"`
	Name   string `json:"name"`  // Arabic name
	EName  string `json:"ename"` // English name
	TName  string `json:"tname"` // transliteration
	Ayas   int    `json:"ayas"`
	Type   string `json:"type"`
}

func (it surahItem) toSurah() quran.Surah {
	return quran.Surah{
		Number:                 it.Number,
		Name:                   it.Name,
		EnglishName:            it.EName,
		EnglishNameTranslation: "Chapter " + it.EName,
		NumberOfAyahs:          it.Ayas,
		RevelationType:         quran.ParseRevelationType(it.Type),
		ID:                     strconv.Itoa(it.Number),
		ArabicName:             it.Name,
		TransliterationName:    it.TName,
	}
}

// FetchSurahList returns every chapter in API order.
func (c *Client) FetchSurahList(ctx context.Context) ([]quran.Surah, error) {
	const op = "fetch surah list"

	body, err := c.getJSON(ctx, op, "/api/get-metadata", url.Values{"type": {"surah-list"}}, nil)
	if err != nil {
		return nil, err
	}

	var items []surahItem
	if err := decodeArray(op, body, &items); err != nil {
		return nil, err
	}

	return lo.Map(items, func(it surahItem, _ int) quran.Surah {
		return it.toSurah()
	}), nil
}

// FetchSurah returns one chapter by number.
func (c *Client) FetchSurah(ctx context.Context, surahID int) (quran.Surah, error) {
	list, err := c.FetchSurahList(ctx)
	if err != nil {
		return quran.Surah{}, err
	}

	s, ok := lo.Find(list, func(s quran.Surah) bool { return s.Number == surahID })
	if !ok {
		return quran.Surah{}, fmt.Errorf("surah %d: %w", surahID, ErrSurahNotFound)
	}
	return s, nil
}
