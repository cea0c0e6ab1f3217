package senior

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"otc-analytics/internal/normalize"

	"golang.org/x/text/encoding/charmap"
)

// DateLayout is the day-first date format the timeline service expects.
const DateLayout = "02/01/2006"

const (
	soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"
	serviceNS = "http://services.senior.com.br"
)

// ErrFault is returned when the response body is a SOAP fault.
var ErrFault = errors.New("webservice fault")

type envelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SoapNS  string   `xml:"xmlns:soapenv,attr"`
	SerNS   string   `xml:"xmlns:ser,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Timeline timelineRequest `xml:"ser:timeline"`
	} `xml:"soapenv:Body"`
}

type timelineRequest struct {
	User       string `xml:"user"`
	Password   string `xml:"password"`
	Encryption int    `xml:"encryption"`
	Parameters struct {
		Data string `xml:"data"`
	} `xml:"parameters"`
}

// Envelope renders the timeline request for one date.
func Envelope(cfg Config, date time.Time) ([]byte, error) {
	env := envelope{SoapNS: soapEnvNS, SerNS: serviceNS}
	env.Body.Timeline.User = cfg.User
	env.Body.Timeline.Password = cfg.Password
	env.Body.Timeline.Encryption = cfg.Encryption
	// The service expects the date wrapped in single quotes.
	env.Body.Timeline.Parameters.Data = "'" + date.Format(DateLayout) + "'"

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return buf.Bytes(), nil
}

type retorno struct {
	Fields []field `xml:",any"`
}

type field struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Value   string     `xml:",chardata"`
}

// isNil matches xsi:nil whether or not the prefix was declared.
func (f field) isNil() bool {
	for _, a := range f.Attrs {
		if a.Name.Local == "nil" && strings.TrimSpace(a.Value) == "true" {
			return true
		}
	}
	return false
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// Decode reads every retorno element of a timeline response into a Row.
// Children marked xsi:nil="true" become explicit nulls.
func Decode(r io.Reader) ([]normalize.Row, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	rows := []normalize.Row{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed timeline payload: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Fault":
			var f fault
			if err := dec.DecodeElement(&f, &start); err != nil {
				return nil, fmt.Errorf("malformed fault: %w", err)
			}
			return nil, fmt.Errorf("%w: %s %s", ErrFault, strings.TrimSpace(f.Code), strings.TrimSpace(f.String))
		case "retorno":
			var ret retorno
			if err := dec.DecodeElement(&ret, &start); err != nil {
				return nil, fmt.Errorf("malformed retorno element: %w", err)
			}
			row := make(normalize.Row, len(ret.Fields))
			for _, f := range ret.Fields {
				if f.isNil() {
					row.SetNull(f.XMLName.Local)
					continue
				}
				row.Set(f.XMLName.Local, f.Value)
			}
			rows = append(rows, row)
		}
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
