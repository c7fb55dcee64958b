package kpi

// Identifier is a single logical metric in its three coordinate forms:
// the opaque code used by the upstream data service, the human display
// name, and the canonical slug alias used everywhere internally.
type Identifier struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// builtinCatalog mirrors the KPI definitions served by the IREGIO data
// service. Aliases are derived from the display name at load time.
var builtinCatalog = []Identifier{
	{Code: "255d", Name: "% Partos Logrados"},
	{Code: "224d", Name: "% Fiebre de leche"},
	{Code: "226d", Name: "% Retencion de Placenta"},
	{Code: "227d", Name: "% Metritis Primaria"},
	{Code: "228d", Name: "% Cetosis"},
	{Code: "309d", Name: "% Vacas Muertas Frescas < 30 DEL"},
	{Code: "311a", Name: "% Desecho Vacas < 60 DEL (Periodo)"},
	{Code: "251f", Name: "% Desecho +"},
	{Code: "79", Name: "Pico de Prod. 1a Lact"},
	{Code: "79a", Name: "Pico de Prod. 2a Lact"},
	{Code: "79b", Name: "Pico de Prod. 3+ Lact"},
	{Code: "43", Name: "Ganancia Peso Diaria (Nac. vs Destete)"},
	{Code: "44", Name: "Eficiencia de Ganancia de Peso"},
	{Code: "298a", Name: "% Becerras Jaulas Muertas < 1 Meses"},
	{Code: "299a", Name: "% Becerras Jaulas Muertas < 2 Meses"},
	{Code: "301a", Name: "% Becerras Muertas (2-13 Meses)"},
	{Code: "45b", Name: "% Fertilidad en Vaquillas"},
	{Code: "53", Name: "Edad 1er Servicio < 13"},
	{Code: "54", Name: "Edad 1er Servicio 13 < 14"},
	{Code: "56", Name: "Edad 1er Servicio > 15"},
	{Code: "78", Name: "Prod a 305 DEL 1a Lact"},
	{Code: "78a", Name: "Prod a 305 DEL 2a Lact"},
	{Code: "78b", Name: "Prod a 305 DEL 3+ Lact"},
	{Code: "328h", Name: "% Total Abortos Vaquillas (M)"},
	{Code: "259", Name: "Daily Rest Time (Min) 1a Lact"},
	{Code: "266", Name: "Daily Rest Time (Min) 2a Lact"},
	{Code: "273", Name: "Daily Rest Time (Min) 3+ Lact"},
	{Code: "291d", Name: "% Vacas c/Prob. Digestivos"},
	{Code: "293d", Name: "% Vacas c/Prob. Locomotores"},
	{Code: "329l", Name: "% Total Abortos Vacas (M)"},
	{Code: "125", Name: "Deteccion de Celos (Ult2)"},
	{Code: "134", Name: "Taza Prenez (21 Dias)"},
	{Code: "24a", Name: "Dias Abiertos (MX)"},
}

// builtinDomains maps each analysis domain to the codes of its default
// KPI scope, used when no domain config file is provided.
var builtinDomains = map[string][]string{
	"Fertility":    {"255d", "125", "134", "24a", "45b", "328h", "329l", "53", "54", "56"},
	"Production":   {"79", "79a", "79b", "78", "78a", "78b", "259", "266", "273"},
	"Health":       {"224d", "226d", "227d", "228d", "291d", "293d"},
	"Calf Raising": {"43", "44", "298a", "299a", "301a"},
	"Culling":      {"309d", "311a", "251f"},
}
