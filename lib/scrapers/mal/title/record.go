package title

import (
	"strconv"
	"strings"

	"anidata-backend/lib/textutil"
)

// Record is the fixed schema extracted for one title. Every field starts at
// the sentinel and is overwritten as sub-pages yield values; the record is
// only ever emitted whole.
type Record struct {
	MALId        string
	Name         string
	SynonymsName string
	JapaneseName string
	EnglishName  string
	Type         string
	Episodes     string
	Status       string
	Aired        string
	Premiered    string
	Producers    []string
	Licensors    []string
	Studios      []string
	Source       string
	Genres       []string
	Demographic  string
	Duration     string
	// ContentRating is the age rating ("R - 17+ ..."), not the score.
	ContentRating string
	Score         string
	Ranked        string
	Popularity    string
	Members       string
	Favorites     string
	Watching      string
	Completed     string
	OnHold        string
	Dropped       string
	PlanToWatch   string
	Total         string
	// ScoreBuckets[0] holds the Score-10 histogram cell, ScoreBuckets[9]
	// holds Score-1.
	ScoreBuckets      [10]string
	Synopsis          string
	VoiceActors       []string
	RecommendedIds    []string
	RecommendedCounts []string
}

func NewRecord(id int) *Record {
	rec := &Record{MALId: strconv.Itoa(id)}
	for _, field := range []*string{
		&rec.Name, &rec.SynonymsName, &rec.JapaneseName, &rec.EnglishName,
		&rec.Type, &rec.Episodes, &rec.Status, &rec.Aired, &rec.Premiered,
		&rec.Source, &rec.Demographic, &rec.Duration, &rec.ContentRating,
		&rec.Score, &rec.Ranked, &rec.Popularity, &rec.Members,
		&rec.Favorites, &rec.Watching, &rec.Completed, &rec.OnHold,
		&rec.Dropped, &rec.PlanToWatch, &rec.Total, &rec.Synopsis,
	} {
		*field = textutil.Sentinel
	}
	for i := range rec.ScoreBuckets {
		rec.ScoreBuckets[i] = textutil.Sentinel
	}
	return rec
}

func Header() []string {
	return []string{
		"MAL_Id", "Name", "Synonyms_Name", "Japanese_Name", "English_Name",
		"Type", "Episodes", "Status", "Aired", "Premiered",
		"Producers", "Licensors", "Studios", "Source", "Genres",
		"Demographic", "Duration", "Rating", "Score", "Ranked",
		"Popularity", "Members", "Favorites", "Watching", "Completed",
		"On-Hold", "Dropped", "Plan to Watch", "Total",
		"Score-10", "Score-9", "Score-8", "Score-7", "Score-6",
		"Score-5", "Score-4", "Score-3", "Score-2", "Score-1",
		"Synopsis", "Voice_Actors", "Recommended_Ids", "Recommended_Counts",
	}
}

func joinList(values []string) string {
	if len(values) == 0 {
		return textutil.Sentinel
	}
	return strings.Join(values, ", ")
}

func (r *Record) Row() []string {
	row := []string{
		r.MALId, r.Name, r.SynonymsName, r.JapaneseName, r.EnglishName,
		r.Type, r.Episodes, r.Status, r.Aired, r.Premiered,
		joinList(r.Producers), joinList(r.Licensors), joinList(r.Studios),
		r.Source, joinList(r.Genres),
		r.Demographic, r.Duration, r.ContentRating, r.Score, r.Ranked,
		r.Popularity, r.Members, r.Favorites, r.Watching, r.Completed,
		r.OnHold, r.Dropped, r.PlanToWatch, r.Total,
	}
	row = append(row, r.ScoreBuckets[:]...)
	return append(row,
		r.Synopsis, joinList(r.VoiceActors),
		joinList(r.RecommendedIds), joinList(r.RecommendedCounts),
	)
}
