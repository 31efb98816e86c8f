package odootest

import (
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/flarebyte/folio-mirror/internal/odoo"
)

// Server exposes a Store through the Odoo XML-RPC endpoints.
type Server struct {
	*httptest.Server
	Store *Store
}

// NewServer starts a server closed automatically at test end.
func NewServer(tb testing.TB, store *Store) *Server {
	tb.Helper()
	s := &Server{Store: store}
	mux := http.NewServeMux()
	mux.HandleFunc("/xmlrpc/2/common", s.handleCommon)
	mux.HandleFunc("/xmlrpc/2/object", s.handleObject)
	s.Server = httptest.NewServer(mux)
	tb.Cleanup(s.Close)
	return s
}

func (s *Server) handleCommon(w http.ResponseWriter, r *http.Request) {
	call, err := readCall(r.Body)
	if err != nil {
		writeFault(w, 1, err.Error())
		return
	}
	if call.Method != "authenticate" || len(call.Params) < 3 {
		writeFault(w, 1, "unsupported common method "+call.Method)
		return
	}
	db, _ := call.Params[0].(string)
	user, _ := call.Params[1].(string)
	pass, _ := call.Params[2].(string)
	if uid := s.Store.Authenticate(db, user, pass); uid > 0 {
		writeResponse(w, uid)
		return
	}
	writeResponse(w, false)
}

func (s *Server) handleObject(w http.ResponseWriter, r *http.Request) {
	call, err := readCall(r.Body)
	if err != nil {
		writeFault(w, 1, err.Error())
		return
	}
	if call.Method != "execute_kw" || len(call.Params) < 6 {
		writeFault(w, 1, "unsupported object method "+call.Method)
		return
	}
	uid, _ := odoo.AsInt(call.Params[1])
	pass, _ := call.Params[2].(string)
	if uid != s.Store.UID || pass != s.Store.Password {
		writeFault(w, 3, "Access Denied")
		return
	}
	model, _ := call.Params[3].(string)
	method, _ := call.Params[4].(string)
	if method != "search_read" {
		writeFault(w, 1, "unsupported model method "+method)
		return
	}
	var domain odoo.Domain
	if args, ok := call.Params[5].([]any); ok && len(args) > 0 {
		leaves, _ := args[0].([]any)
		for _, l := range leaves {
			if leaf, ok := l.([]any); ok {
				domain = append(domain, odoo.Condition(leaf))
			}
		}
	}
	var fields []string
	if len(call.Params) > 6 {
		if kw, ok := call.Params[6].(map[string]any); ok {
			if fs, ok := kw["fields"].([]any); ok {
				for _, f := range fs {
					if name, ok := f.(string); ok {
						fields = append(fields, name)
					}
				}
			}
		}
	}
	rows, err := s.Store.SearchRead(context.Background(), model, domain, fields)
	if err != nil {
		msg := err.Error()
		if qe, ok := err.(*odoo.QueryError); ok {
			msg = qe.Err.Error()
		}
		writeFault(w, 2, msg)
		return
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any(row))
	}
	writeResponse(w, out)
}

type methodCall struct {
	XMLName xml.Name   `xml:"methodCall"`
	Method  string     `xml:"methodName"`
	Values  []xmlValue `xml:"params>param>value"`
	Params  []any      `xml:"-"`
}

type xmlValue struct {
	Int     *string    `xml:"int"`
	I4      *string    `xml:"i4"`
	I8      *string    `xml:"i8"`
	Double  *string    `xml:"double"`
	Boolean *string    `xml:"boolean"`
	String  *string    `xml:"string"`
	Base64  *string    `xml:"base64"`
	Nil     *struct{}  `xml:"nil"`
	Array   *xmlArray  `xml:"array"`
	Struct  *xmlStruct `xml:"struct"`
	Text    string     `xml:",chardata"`
}

type xmlArray struct {
	Values []xmlValue `xml:"data>value"`
}

type xmlStruct struct {
	Members []xmlMember `xml:"member"`
}

type xmlMember struct {
	Name  string   `xml:"name"`
	Value xmlValue `xml:"value"`
}

func readCall(r io.Reader) (methodCall, error) {
	var call methodCall
	if err := xml.NewDecoder(r).Decode(&call); err != nil {
		return call, fmt.Errorf("decode method call: %w", err)
	}
	for _, v := range call.Values {
		p, err := v.decode()
		if err != nil {
			return call, err
		}
		call.Params = append(call.Params, p)
	}
	return call, nil
}

func (v xmlValue) decode() (any, error) {
	switch {
	case v.Int != nil:
		return strconv.ParseInt(strings.TrimSpace(*v.Int), 10, 64)
	case v.I4 != nil:
		return strconv.ParseInt(strings.TrimSpace(*v.I4), 10, 64)
	case v.I8 != nil:
		return strconv.ParseInt(strings.TrimSpace(*v.I8), 10, 64)
	case v.Double != nil:
		return strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
	case v.Boolean != nil:
		return strings.TrimSpace(*v.Boolean) == "1", nil
	case v.String != nil:
		return *v.String, nil
	case v.Base64 != nil:
		return base64.StdEncoding.DecodeString(strings.TrimSpace(*v.Base64))
	case v.Nil != nil:
		return nil, nil
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for _, it := range v.Array.Values {
			d, err := it.decode()
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	case v.Struct != nil:
		out := make(map[string]any, len(v.Struct.Members))
		for _, m := range v.Struct.Members {
			d, err := m.Value.decode()
			if err != nil {
				return nil, err
			}
			out[m.Name] = d
		}
		return out, nil
	default:
		return v.Text, nil
	}
}

func writeResponse(w http.ResponseWriter, v any) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><methodResponse><params><param>`)
	encodeValue(&b, v)
	b.WriteString(`</param></params></methodResponse>`)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, b.String())
}

func writeFault(w http.ResponseWriter, code int, msg string) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><methodResponse><fault>`)
	encodeValue(&b, map[string]any{"faultCode": code, "faultString": msg})
	b.WriteString(`</fault></methodResponse>`)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, b.String())
}

func encodeValue(b *strings.Builder, v any) {
	b.WriteString("<value>")
	switch x := v.(type) {
	case nil:
		b.WriteString("<boolean>0</boolean>")
	case bool:
		if x {
			b.WriteString("<boolean>1</boolean>")
		} else {
			b.WriteString("<boolean>0</boolean>")
		}
	case int:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case int64:
		fmt.Fprintf(b, "<int>%d</int>", x)
	case float64:
		fmt.Fprintf(b, "<double>%s</double>", strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		b.WriteString("<string>")
		_ = xml.EscapeText(b, []byte(x))
		b.WriteString("</string>")
	case []byte:
		fmt.Fprintf(b, "<base64>%s</base64>", base64.StdEncoding.EncodeToString(x))
	case []any:
		b.WriteString("<array><data>")
		for _, it := range x {
			encodeValue(b, it)
		}
		b.WriteString("</data></array>")
	case odoo.Record:
		encodeValue(b, map[string]any(x))
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("<struct>")
		for _, k := range keys {
			b.WriteString("<member><name>")
			_ = xml.EscapeText(b, []byte(k))
			b.WriteString("</name>")
			encodeValue(b, x[k])
			b.WriteString("</member>")
		}
		b.WriteString("</struct>")
	default:
		b.WriteString("<string>")
		_ = xml.EscapeText(b, []byte(fmt.Sprint(x)))
		b.WriteString("</string>")
	}
	b.WriteString("</value>")
}
