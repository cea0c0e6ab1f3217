package codes

import (
	"sort"
	"strconv"
	"strings"
)

// Unknown is the label of any code missing from its table.
const Unknown = "Status Desconhecido"

// Domain identifies one enumerated code family of the backend.
type Domain string

const (
	OrderSituation Domain = "order_situation"
	ItemPrep       Domain = "item_prep"
	Load           Domain = "load"
	Invoice        Domain = "invoice"
	Title          Domain = "title"
)

// Domains lists every domain with a table.
var Domains = []Domain{OrderSituation, ItemPrep, Load, Invoice, Title}

// Table maps the codes of one domain to display labels. Tables are never mutated.
type Table struct {
	domain  Domain
	numeric bool
	labels  map[string]string
}

var tables = map[Domain]Table{
	OrderSituation: {
		domain:  OrderSituation,
		numeric: true,
		labels: map[string]string{
			"1": "Aberto Total",
			"2": "Aberto Parcial",
			"3": "Suspenso",
			"4": "Liquidado",
			"5": "Cancelado",
			"6": "Aguardando Integração WMS",
			"7": "Em Transmissão",
			"8": "Preparação Análise ou NF",
			"9": "Fechado",
		},
	},
	ItemPrep: {
		domain:  ItemPrep,
		numeric: true,
		labels: map[string]string{
			"1": "Em Analise Credito",
			"2": "Em Preparação",
			"3": "Para Faturar",
			"4": "Faturada",
			"5": "Em Conferencia",
			"6": "Aguardando Integração WMS",
			"8": "Sem Estoque",
			"9": "Cancelada",
		},
	},
	Load: {
		domain: Load,
		labels: map[string]string{
			"A": "Aberto",
			"F": "Fechado",
		},
	},
	Invoice: {
		domain:  Invoice,
		numeric: true,
		labels: map[string]string{
			"1": "Digitada",
			"2": "Fechada",
			"3": "Cancelada",
			"4": "Documento Fiscal Emitido (Saida)",
			"5": "Aguardando Fechamento (Pos Saida)",
			"6": "Aguardando Integração WMS",
			"7": "Digitada Integração",
			"8": "Agrupada",
		},
	},
	Title: {
		domain: Title,
		labels: map[string]string{
			"AO": "Aberto ao Órgão de Proteção ao Crédito",
			"AN": "Aberto Negociação",
			"AA": "Aberto Advogado",
			"AB": "Aberto Normal",
			"AC": "Aberto Cartório",
			"AE": "Aberto Encontro de Contas",
			"AI": "Aberto Impostos",
			"AJ": "Aberto Retorno Jurídico",
			"AP": "Aberto Protestado",
			"AR": "Aberto Representante",
			"AS": "Aberto Suspenso",
			"AV": "Aberto Gestão de Pessoas",
			"AX": "Aberto Externo",
			"CA": "Cancelado",
			"CE": "Aberto CE (Preparação Cobrança Escritural)",
			"CO": "Aberto Cobrança",
			"LQ": "Liquidado Normal",
			"LC": "Liquidado Cartório",
			"LI": "Liquidado Impostos",
			"LM": "Liquidado Compensado",
			"LO": "Liquidado Cobrança",
			"LP": "Liquidado Protestado",
			"LS": "Liquidado Substituído",
			"LV": "Liquidado Gestão de Pessoas",
			"LX": "Liquidado Externo",
			"PE": "Aberto PE (Pagamento Eletrônico)",
		},
	},
}

// Get returns the table of a domain.
func Get(d Domain) (Table, bool) {
	t, ok := tables[d]
	return t, ok
}

// Lookup resolves a code in a domain, falling back to Unknown.
func Lookup(d Domain, code string) string {
	t, ok := tables[d]
	if !ok {
		return Unknown
	}
	return t.Label(code)
}

func (t Table) Domain() Domain { return t.domain }

// Label resolves a raw code. Numeric domains accept spreadsheet floats such as "4.0".
func (t Table) Label(code string) string {
	if label, ok := t.labels[t.canonical(code)]; ok {
		return label
	}
	return Unknown
}

// Known reports whether the code has a label of its own.
func (t Table) Known(code string) bool {
	_, ok := t.labels[t.canonical(code)]
	return ok
}

// Codes returns the table's codes in ascending order.
func (t Table) Codes() []string {
	out := make([]string, 0, len(t.labels))
	for code := range t.labels {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func (t Table) canonical(code string) string {
	code = strings.TrimSpace(code)
	if !t.numeric {
		return strings.ToUpper(code)
	}
	if f, err := strconv.ParseFloat(code, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return code
}
