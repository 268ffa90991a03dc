package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abchat/internal/dataset"
	"abchat/internal/extract"
	"abchat/internal/index"
	"abchat/internal/query"
)

const routerCSV = `experimento,tienda_id,region,tipo_tienda,usuarios,conversiones,revenue,conversion_rate
Control,T_Control_001,Norte,Mall,100,10,500.00,0.10
Control,T_Control_002,Sur,Street,200,20,900.50,0.10
Experimento_A,T_Experimento_A_001,Norte,Mall,100,12,610.00,0.12
Experimento_A,T_Experimento_A_002,Este,Outlet,1500,180,7000.25,0.12
`

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	rows, err := dataset.Parse(strings.NewReader(routerCSV))
	require.NoError(t, err)
	return New(dataset.New("mem", rows), extract.New())
}

func TestClassify(t *testing.T) {
	cases := map[string]Intent{
		"Hola":                                IntentGreeting,
		"buenos días!":                        IntentGreeting,
		"¿Cuántos usuarios hay?":              IntentCount,
		"how many stores":                     IntentCount,
		"¿Qué datos tienes?":                  IntentDataInfo,
		"datos de T_Control_001":              IntentStoreLookup,
		"¿Cuál fue el lift en conversiones?":  IntentUnknown,
		"hola, ¿cuál fue el lift por región?": IntentUnknown,
	}
	for q, want := range cases {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, want, Classify(q))
		})
	}
}

func TestRoute_Greeting(t *testing.T) {
	r := newTestRouter(t)
	got := r.Route("hola")
	assert.True(t, got.Handled)
	assert.Contains(t, got.Text, "¡Hola!")
}

func TestRoute_CountsScopedByFilters(t *testing.T) {
	r := newTestRouter(t)
	cases := map[string]string{
		"¿Cuántos usuarios hay?":                          "Hay 1,900 usuarios en todo el dataset.",
		"¿Cuántos usuarios tiene el grupo control?":       "Hay 300 usuarios con filtros experiment_arm=Control.",
		"¿Cuántas conversiones hubo en la región norte?":  "Hay 22 conversiones con filtros region=Norte.",
		"¿Cuántas tiendas tiene el experimento A?":        "Hay 2 tiendas con filtros experiment_arm=Experimento_A.",
		"número de tiendas y usuarios":                    "Hay 4 tiendas con un total de 1,900 usuarios en todo el dataset.",
		"¿Cuántas regiones hay?":                          "Hay 3 regiones en todo el dataset: Este, Norte, Sur.",
		"cantidad de tipos de tienda en el grupo control": "Hay 2 tipos de tienda con filtros experiment_arm=Control: Mall, Street.",
		"¿Cuál es el revenue total?":                      "El revenue total en todo el dataset es $9,010.75.",
	}
	for q, want := range cases {
		t.Run(q, func(t *testing.T) {
			got := r.Route(q)
			require.True(t, got.Handled)
			assert.Equal(t, IntentCount, got.Intent)
			assert.Equal(t, want, got.Text)
		})
	}
}

func TestRoute_CountWithComparisonIsNotHandled(t *testing.T) {
	got := newTestRouter(t).Route("¿Cuántos usuarios hay en Mall vs Street?")
	assert.Equal(t, IntentCount, got.Intent)
	assert.False(t, got.Handled)
}

func TestRoute_StoreLookup(t *testing.T) {
	r := newTestRouter(t)
	got := r.Route("dame los datos de t_experimento_a_002")
	require.True(t, got.Handled)
	assert.Contains(t, got.Text, "Datos de la tienda T_Experimento_A_002")
	assert.Contains(t, got.Text, "Usuarios: 1,500")
	assert.Contains(t, got.Text, "Conversion Rate: 12.00%")

	got = r.Route("datos de T_Control_999")
	require.True(t, got.Handled)
	assert.Equal(t, "No se encontraron datos para la tienda T_Control_999.", got.Text)
}

func TestRoute_DataInfo(t *testing.T) {
	got := newTestRouter(t).Route("¿qué datos hay disponibles?")
	require.True(t, got.Handled)
	assert.Contains(t, got.Text, "4 registros de tiendas")
	assert.Contains(t, got.Text, "Regiones: Este, Norte, Sur")
}

func TestRoute_UnknownGoesToPipeline(t *testing.T) {
	got := newTestRouter(t).Route("¿Hay diferencias significativas por región?")
	assert.Equal(t, IntentUnknown, got.Intent)
	assert.False(t, got.Handled)
}

func TestDetectPerformance(t *testing.T) {
	p, ok := DetectPerformance("¿Qué tienda tuvo la mayor tasa de conversión?")
	require.True(t, ok)
	assert.Equal(t, Performance{Metric: index.FieldConversionRate, Order: query.Desc}, p)

	_, ok = DetectPerformance("¿cómo mejorar el revenue?")
	assert.False(t, ok, "only whole words count")

	p, ok = DetectPerformance("las tiendas con peor revenue")
	require.True(t, ok)
	assert.Equal(t, Performance{Metric: index.FieldRevenue, Order: query.Asc}, p)

	p, ok = DetectPerformance("top stores by users")
	require.True(t, ok)
	assert.Equal(t, index.FieldUsers, p.Metric)

	_, ok = DetectPerformance("¿Cuál fue el lift?")
	assert.False(t, ok)
}
