// Package e2e provides end-to-end tests over a generated news corpus.
package e2e

import "fmt"

// NewsItem is one article in the corpus.
type NewsItem struct {
	ID       string
	Headline string
	Body     string
}

// QueryTestCase is a question whose context must include ExpectedID's body.
type QueryTestCase struct {
	Query       string
	ExpectedID  string
	Description string
}

// Corpus holds articles and the questions asked against them.
type Corpus struct {
	Items     []NewsItem
	TestCases []QueryTestCase
}

var topics = []struct {
	headline string
	body     string
}{
	{"Ключевая ставка", "Банк России сохранил ключевую ставку и пообещал следить за инфляционными ожиданиями."},
	{"Курс рубля", "Рубль укрепился к доллару на фоне высоких цен на нефть и налогового периода."},
	{"Запуск спутника", "С космодрома Восточный стартовала ракета с метеорологическим спутником на борту."},
	{"Паводок", "В Оренбургской области из-за паводка эвакуированы жители нескольких сёл."},
	{"Выборы", "Избирательная комиссия подвела предварительные итоги голосования в регионах."},
	{"Футбол", "Сборная проиграла товарищеский матч со счётом два на один после пенальти."},
	{"Урожай", "Аграрии собрали рекордный урожай пшеницы благодаря тёплой осени."},
	{"Метро", "В Москве открыли три новые станции Большой кольцевой линии метро."},
	{"Нефть", "Цены на нефть марки Brent выросли после сокращения добычи странами ОПЕК+."},
	{"Театр", "Большой театр представил премьеру оперы в постановке молодого режиссёра."},
	{"Погода", "Синоптики предупредили о сильных морозах в Сибири на выходных."},
	{"Авиация", "Авиакомпания получила первый серийный самолёт отечественной сборки."},
}

// BuildCorpus returns n articles. Each body carries a unique bulletin number so no two
// articles share text.
func BuildCorpus(n int) *Corpus {
	c := &Corpus{}
	for i := 0; i < n; i++ {
		t := topics[i%len(topics)]
		item := NewsItem{
			ID:       fmt.Sprintf("news-%03d", i),
			Headline: t.headline,
			Body:     fmt.Sprintf("Сводка %d. %s", i+1, t.body),
		}
		c.Items = append(c.Items, item)
	}
	for i := 0; i < n; i += 7 {
		c.TestCases = append(c.TestCases, QueryTestCase{
			Query:       c.Items[i].Body,
			ExpectedID:  c.Items[i].ID,
			Description: "exact article text retrieves the article",
		})
	}
	return c
}

// Item returns the article with id.
func (c *Corpus) Item(id string) (NewsItem, bool) {
	for _, it := range c.Items {
		if it.ID == id {
			return it, true
		}
	}
	return NewsItem{}, false
}
