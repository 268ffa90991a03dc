package router

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"abchat/internal/dataset"
	"abchat/internal/domain"
	"abchat/internal/extract"
)

// Intent classifies a question by how it can be answered.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentCount       Intent = "count"
	IntentDataInfo    Intent = "data_info"
	IntentStoreLookup Intent = "store_lookup"
	IntentUnknown     Intent = "unknown"
)

// maxGreetingLen is the longest question still answered as a plain greeting.
const maxGreetingLen = 15

var (
	greetingRe = regexp.MustCompile(`^(hola|hello|hi|hey|buenos dias|buenas tardes|buenas noches)[\s.!¡]*$`)
	countRe    = regexp.MustCompile(`\b(cuantos|cuantas|cantidad|numero|total|how many|count of)\b`)
	dataInfoRe = regexp.MustCompile(`\b(que datos|que informacion|datos disponibles|what data|available data)\b`)
	storeIDRe  = regexp.MustCompile(`(?i)\bT_(Control|Experimento_[A-Z])_\d{3}\b`)
)

// Route is the router's decision. When Handled is false the question goes to the full pipeline.
type Route struct {
	Intent  Intent
	Text    string
	Handled bool
}

// Router answers simple questions straight from the dataset.
type Router struct {
	ds      *dataset.Dataset
	x       *extract.Extractor
	printer *message.Printer
}

// New returns a router over ds.
func New(ds *dataset.Dataset, x *extract.Extractor) *Router {
	return &Router{ds: ds, x: x, printer: message.NewPrinter(language.English)}
}

// Classify picks the highest-priority intent whose pattern matches.
func Classify(question string) Intent {
	folded := strings.TrimSpace(extract.Fold(question))
	switch {
	case storeIDRe.MatchString(question):
		return IntentStoreLookup
	case greetingRe.MatchString(folded):
		return IntentGreeting
	case countRe.MatchString(folded):
		return IntentCount
	case dataInfoRe.MatchString(folded):
		return IntentDataInfo
	}
	return IntentUnknown
}

// Route classifies question and answers it when no analysis is needed.
func (r *Router) Route(question string) Route {
	intent := Classify(question)
	route := Route{Intent: intent}
	switch intent {
	case IntentGreeting:
		if utf8.RuneCountInString(strings.TrimSpace(question)) <= maxGreetingLen {
			route.Text = "¡Hola! Estoy aquí para ayudarte con el análisis del A/B test. ¿Qué te gustaría saber sobre los datos?"
		}
	case IntentStoreLookup:
		route.Text = r.storeLookup(question)
	case IntentCount:
		route.Text = r.count(question)
	case IntentDataInfo:
		route.Text = r.dataInfo()
	}
	route.Handled = route.Text != ""
	return route
}

func (r *Router) storeLookup(question string) string {
	id := storeIDRe.FindString(question)
	row, ok := r.ds.FindStore(id)
	if !ok {
		return r.printer.Sprintf("No se encontraron datos para la tienda %s.", id)
	}
	return r.printer.Sprintf("Datos de la tienda %s:\n"+
		"• Experimento: %s\n• Región: %s\n• Tipo de tienda: %s\n"+
		"• Usuarios: %d\n• Conversiones: %d\n• Revenue: $%.2f\n• Conversion Rate: %.2f%%",
		row.StoreID, row.Arm, row.Region, row.StoreType,
		row.Users, row.Conversions, row.Revenue, row.ConversionRate*100)
}

func (r *Router) dataInfo() string {
	s := r.ds.Summarize()
	return r.printer.Sprintf("Datos disponibles en el dataset:\n"+
		"• %d registros de tiendas\n• Experimentos: %s\n• Regiones: %s\n• Tipos de tienda: %s\n"+
		"• Total usuarios: %d\n• Total conversiones: %d\n• Revenue total: $%.2f",
		s.Records, strings.Join(s.Arms, ", "), strings.Join(s.Regions, ", "), strings.Join(s.StoreTypes, ", "),
		s.Users, s.Conversions, s.Revenue)
}

type subject int

const (
	subjectGeneric subject = iota
	subjectStoresAndUsers
	subjectUsers
	subjectConversions
	subjectRevenue
	subjectStores
	subjectRegions
	subjectStoreTypes
)

func countSubject(folded string) subject {
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(folded, w) {
				return true
			}
		}
		return false
	}
	stores := has("tienda", "store")
	users := has("usuario", "user")
	switch {
	case stores && users:
		return subjectStoresAndUsers
	case has("tipos", "store types", "formatos"):
		return subjectStoreTypes
	case users:
		return subjectUsers
	case has("conversion"):
		return subjectConversions
	case has("revenue", "ingreso"):
		return subjectRevenue
	case stores || has("registro"):
		return subjectStores
	case has("region"):
		return subjectRegions
	case has("tipo"):
		return subjectStoreTypes
	}
	return subjectGeneric
}

// count answers from the rows matching the extracted filters. Questions comparing
// several values go to the full pipeline instead.
func (r *Router) count(question string) string {
	ex := r.x.Extract(question)
	if len(ex.Comparisons) > 0 {
		return ""
	}
	var users, conversions int
	revenue := 0.0
	regions := map[domain.Region]struct{}{}
	types := map[domain.StoreType]struct{}{}
	var rows []domain.ExperimentRow
	for _, row := range r.ds.Rows() {
		if !ex.Filters.Matches(row) {
			continue
		}
		rows = append(rows, row)
		users += row.Users
		conversions += row.Conversions
		revenue += row.Revenue
		regions[row.Region] = struct{}{}
		types[row.StoreType] = struct{}{}
	}
	scope := "en todo el dataset"
	if !ex.Filters.IsEmpty() {
		scope = "con filtros " + ex.Filters.String()
	}
	p := r.printer
	switch countSubject(extract.Fold(question)) {
	case subjectStoresAndUsers:
		return p.Sprintf("Hay %d tiendas con un total de %d usuarios %s.", len(rows), users, scope)
	case subjectUsers:
		return p.Sprintf("Hay %d usuarios %s.", users, scope)
	case subjectConversions:
		return p.Sprintf("Hay %d conversiones %s.", conversions, scope)
	case subjectRevenue:
		return p.Sprintf("El revenue total %s es $%.2f.", scope, revenue)
	case subjectStores:
		return p.Sprintf("Hay %d tiendas %s.", len(rows), scope)
	case subjectRegions:
		names := present(domain.DimRegion, func(v string) bool { _, ok := regions[domain.Region(v)]; return ok })
		return p.Sprintf("Hay %d regiones %s: %s.", len(names), scope, strings.Join(names, ", "))
	case subjectStoreTypes:
		names := present(domain.DimStoreType, func(v string) bool { _, ok := types[domain.StoreType(v)]; return ok })
		return p.Sprintf("Hay %d tipos de tienda %s: %s.", len(names), scope, strings.Join(names, ", "))
	}
	return p.Sprintf("Hay %d tiendas con %d usuarios y %d conversiones %s.", len(rows), users, conversions, scope)
}

func present(d domain.Dimension, ok func(string) bool) []string {
	var out []string
	for _, v := range d.Values() {
		if ok(v) {
			out = append(out, v)
		}
	}
	return out
}
