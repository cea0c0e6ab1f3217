package normalize

import (
	"strings"

	"otc-analytics/internal/orders"
)

// Schema identifies the shape of a source row. It is fixed per ingestion path.
type Schema string

const (
	// Webservice rows come from the SOAP timeline response (C-prefixed tags).
	Webservice Schema = "webservice"
	// Extract rows come from the operational spreadsheet export.
	Extract Schema = "extract"
	// ExtractAlt rows use the webservice fields renamed to business column names.
	ExtractAlt Schema = "extract_alt"
)

// Schemas lists every supported schema.
var Schemas = []Schema{Webservice, Extract, ExtractAlt}

type pair struct {
	date, time string
}

type fieldMap struct {
	branch     string
	order      string
	milestones [orders.NumMilestones][]pair
	attributes map[orders.Attribute]string
}

var fieldMaps = map[Schema]fieldMap{
	Webservice: {
		branch: "CFilial",
		order:  "CPedido",
		milestones: [orders.NumMilestones][]pair{
			orders.OrderCreated:       {{"CDataEmissaoPedido", "CHoraEmissaoPedido"}},
			orders.ShipmentAssociated: {{"CDataAssRemessa", "CHoraAssRemessa"}},
			orders.ItemPrepared:       {{"CDataPrepItem", "CHoraPrepItem"}},
			orders.InvoiceIssued:      {{"CDataGerNF", "CHoraGerNF"}, {"CDataGeracaoNF", "CHoraGeracaoNF"}},
			orders.TitleRegistered:    {{"CDataGerTCR", "CHoraGerTCR"}},
		},
		attributes: map[orders.Attribute]string{
			orders.AttrOrderSituation:   "CSituacaoPedido",
			orders.AttrOrderBlocked:     "CPedidoBloqueado",
			orders.AttrBlockUser:        "CUsuarioBloqPedido",
			orders.AttrBlockDate:        "CDataBloqueio",
			orders.AttrObservation:      "CObservacaoPedido",
			orders.AttrInvoiceNumber:    "CNumeroNF",
			orders.AttrBillingStart:     "CInicioFaturamento",
			orders.AttrBillingEnd:       "CFimFaturamento",
			orders.AttrProductCode:      "CCodigoProduto",
			orders.AttrPFASituation:     "CSituacaoPFA",
			orders.AttrPFABlock:         "CBloqPFA",
			orders.AttrBillingSituation: "CSituacaoFAT",
			orders.AttrLoadSituation:    "CSituacaoCarga",
			orders.AttrNFVSituation:     "CSituacaoNFV",
			orders.AttrNFVBlock:         "CNFVBloqueio",
			orders.AttrTitleNumber:      "CNumeroTitulo",
			orders.AttrTitleDueDate:     "CVencOrigTitulo",
			orders.AttrTitleSituation:   "CSituacaoTitulo",
		},
	},
	Extract: {
		branch: "FILIAL",
		order:  "PEDIDO",
		milestones: [orders.NumMilestones][]pair{
			orders.OrderCreated:       {{"DATA GERACAO", "HORA GERACAO DO PEDIDO"}},
			orders.ShipmentAssociated: {{"DATA DE EMISSAO DA NOTA FISCAL", "HORA GERACAO DA NOTA FISCAL"}},
			orders.ItemPrepared:       {{"DATA DA SAÍDA DAS MERCADORIAS", "HORA DA SAÍDA DAS MERCADORIAS"}},
			orders.InvoiceIssued:      {{"DATA GERACAO DA NOTA FISCAL", "HORA GERACAO DA NOTA FISCAL"}},
			orders.TitleRegistered:    {{"DATA ENTRADA DO TITULO", "HORA GERACAO DO REGISTRO"}},
		},
		attributes: businessAttributes,
	},
	ExtractAlt: {
		branch: "FILIAL",
		order:  "PEDIDO",
		milestones: [orders.NumMilestones][]pair{
			orders.OrderCreated:       {{"DATA EMISSAO PEDIDO", "HORA EMISSAO PEDIDO"}},
			orders.ShipmentAssociated: {{"DATA ASS REMESSA", "HORA ASS REMESSA"}},
			orders.ItemPrepared:       {{"DATA PREPARACAO DO ITEM", "HORA PREPARACAO DO ITEM"}},
			orders.InvoiceIssued:      {{"DATA GERACAO NF", "HORA GERACAO NF"}, {"DATA GERACAO DA NOTA FISCAL", "HORA GERACAO DA NOTA FISCAL"}},
			orders.TitleRegistered:    {{"DATA GERACAO DO REGISTRO", "HORA GERACAO DO REGISTRO"}},
		},
		attributes: businessAttributes,
	},
}

// Both spreadsheet layouts share the business column names for auxiliary fields.
var businessAttributes = map[orders.Attribute]string{
	orders.AttrOrderSituation:   "SITUACAO DO PEDIDO",
	orders.AttrOrderBlocked:     "PEDIDO BLOQUEADO",
	orders.AttrBlockUser:        "USUARIO BLOQ PEDIDO",
	orders.AttrBlockDate:        "DATA DO BLOQUEIO",
	orders.AttrObservation:      "OBSERVACAO DO PEDIDO",
	orders.AttrInvoiceNumber:    "N° NOTA FISCAL",
	orders.AttrBillingStart:     "INICIO FATURAMENTO",
	orders.AttrBillingEnd:       "FIM FATURAMENTO",
	orders.AttrProductCode:      "CODIGO PRODUTO",
	orders.AttrPFASituation:     "SITUACAO PFA",
	orders.AttrPFABlock:         "BLOQUEIO PFA",
	orders.AttrBillingSituation: "SITUACAO FAT",
	orders.AttrLoadSituation:    "SITUACAO CARGA",
	orders.AttrNFVSituation:     "SITUACAO NFV",
	orders.AttrNFVBlock:         "NFV BLOQUEIO",
	orders.AttrTitleNumber:      "N° TITULO",
	orders.AttrTitleDueDate:     "VENCIMENTO ORIGINAL DO TITULO",
	orders.AttrTitleSituation:   "SITUACAO DO TITULO",
}

// dateAttributes hold a calendar date with no paired time column.
var dateAttributes = []orders.Attribute{
	orders.AttrBlockDate,
	orders.AttrBillingStart,
	orders.AttrBillingEnd,
	orders.AttrTitleDueDate,
}

// DateColumn reports whether a spreadsheet header carries a calendar date:
// every DATA column plus the date-valued business attributes.
func DateColumn(header string) bool {
	if strings.HasPrefix(header, "DATA") {
		return true
	}
	for _, attr := range dateAttributes {
		if businessAttributes[attr] == header {
			return true
		}
	}
	return false
}
