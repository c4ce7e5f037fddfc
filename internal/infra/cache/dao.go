package cache

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luminousverses/luminous/internal/domain/quran"
)

// DAO provides data access operations for the cache.
type DAO struct {
	db *DB
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db}
}

// --- Surah Operations ---

// UpsertSurahs inserts or updates chapters in a single transaction.
func (dao *DAO) UpsertSurahs(surahs []quran.Surah) error {
	tx, err := dao.db.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO surahs (number, name, english_name, english_name_translation,
			number_of_ayahs, revelation_type, transliteration_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			name = excluded.name, english_name = excluded.english_name,
			english_name_translation = excluded.english_name_translation,
			number_of_ayahs = excluded.number_of_ayahs, revelation_type = excluded.revelation_type,
			transliteration_name = excluded.transliteration_name, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare surah upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, s := range surahs {
		if _, err := stmt.Exec(s.Number, s.Name, s.EnglishName, s.EnglishNameTranslation,
			s.NumberOfAyahs, string(s.RevelationType), s.TransliterationName, now); err != nil {
			return fmt.Errorf("upsert surah %d: %w", s.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug().Int("count", len(surahs)).Msg("Surahs cached")
	return nil
}

// Surahs returns every cached chapter ordered by number.
func (dao *DAO) Surahs() ([]quran.Surah, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, ErrNotOpen
	}

	rows, err := db.Query(`
		SELECT number, name, english_name, english_name_translation, number_of_ayahs,
			revelation_type, transliteration_name
		FROM surahs ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var surahs []quran.Surah
	for rows.Next() {
		s, err := scanSurah(rows)
		if err != nil {
			return nil, err
		}
		surahs = append(surahs, s)
	}
	return surahs, rows.Err()
}

// Surah returns one cached chapter. ok is false when it is not cached.
func (dao *DAO) Surah(number int) (s quran.Surah, ok bool, err error) {
	db := dao.db.DB()
	if db == nil {
		return s, false, ErrNotOpen
	}

	row := db.QueryRow(`
		SELECT number, name, english_name, english_name_translation, number_of_ayahs,
			revelation_type, transliteration_name
		FROM surahs WHERE number = ?
	`, number)
	s, err = scanSurah(row)
	if err == sql.ErrNoRows {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	return s, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSurah(row scanner) (quran.Surah, error) {
	var (
		s                     quran.Surah
		translation, translit sql.NullString
		revelation            string
	)
	if err := row.Scan(&s.Number, &s.Name, &s.EnglishName, &translation, &s.NumberOfAyahs,
		&revelation, &translit); err != nil {
		return s, err
	}
	s.EnglishNameTranslation = translation.String
	s.TransliterationName = translit.String
	s.RevelationType = quran.ParseRevelationType(revelation)
	s.ID = strconv.Itoa(s.Number)
	s.ArabicName = s.Name
	return s, nil
}

// --- Verse Operations ---

// ReplaceVerses stores the full verse list of a chapter for one translator,
// replacing whatever was cached before.
func (dao *DAO) ReplaceVerses(surahID int, translator string, verses []quran.Verse) error {
	tx, err := dao.db.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM verses WHERE surah_id = ? AND translator = ?", surahID, translator); err != nil {
		return fmt.Errorf("clear verses for surah %d: %w", surahID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO verses (surah_id, number_in_surah, translator, id, text, translation, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare verse insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(time.RFC3339)
	for _, v := range verses {
		if _, err := stmt.Exec(surahID, v.NumberInSurah, translator, v.ID, v.Text, v.Translation, now); err != nil {
			return fmt.Errorf("insert verse %d:%d: %w", surahID, v.NumberInSurah, err)
		}
	}

	return tx.Commit()
}

// Verses returns the cached verses of a chapter in order. An empty result
// means the chapter is not cached for translator.
func (dao *DAO) Verses(surahID int, translator string) ([]quran.Verse, error) {
	db := dao.db.DB()
	if db == nil {
		return nil, ErrNotOpen
	}

	rows, err := db.Query(`
		SELECT id, number_in_surah, text, translation
		FROM verses WHERE surah_id = ? AND translator = ?
		ORDER BY number_in_surah
	`, surahID, translator)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var verses []quran.Verse
	for rows.Next() {
		v := quran.Verse{SurahID: surahID}
		var translation sql.NullString
		if err := rows.Scan(&v.ID, &v.NumberInSurah, &v.Text, &translation); err != nil {
			return nil, err
		}
		v.Translation = translation.String
		verses = append(verses, v)
	}
	return verses, rows.Err()
}

// --- Settings Operations ---

// Get returns a stored setting value.
func (dao *DAO) Get(key string) (string, bool, error) {
	db := dao.db.DB()
	if db == nil {
		return "", false, ErrNotOpen
	}

	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores a setting value.
func (dao *DAO) Set(key, value string) error {
	db := dao.db.DB()
	if db == nil {
		return ErrNotOpen
	}

	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Format(time.RFC3339))
	return err
}
