package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"hmmsynth/domain/synth"
	"hmmsynth/internal/errors"
)

// RemoteReader reads records from a running item server. It implements
// ports.ItemReader, so profiling works the same against a local collection
// or a remote one.
type RemoteReader struct {
	config     RemoteConfig
	httpClient *http.Client
	schema     SchemaResponse
	kinds      map[string]synth.ValueKind
}

// NewRemoteReader connects to the server and fetches its schema.
func NewRemoteReader(ctx context.Context, config RemoteConfig) (*RemoteReader, error) {
	r := &RemoteReader{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}

	body, err := r.fetch(ctx, "/api/schema")
	if err != nil {
		return nil, err
	}
	schema, err := parseSchema(body)
	if err != nil {
		return nil, err
	}
	r.schema = schema
	r.kinds = make(map[string]synth.ValueKind, len(schema.Columns))
	for name, kind := range schema.Columns {
		k, ok := synth.ParseValueKind(kind)
		if !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q has unknown kind %q", name, kind))
		}
		r.kinds[name] = k
	}
	return r, nil
}

func (r *RemoteReader) Size() int      { return r.schema.Size }
func (r *RemoteReader) NumModels() int { return r.schema.NumModels }
func (r *RemoteReader) SeqLen() int    { return r.schema.SeqLen }

// Get fetches record i. The request is bounded by the configured timeout.
func (r *RemoteReader) Get(i int) (synth.Record, error) {
	return r.GetContext(context.Background(), i)
}

// GetContext is Get with a caller-supplied context
func (r *RemoteReader) GetContext(ctx context.Context, i int) (synth.Record, error) {
	body, err := r.fetch(ctx, "/api/items/"+strconv.Itoa(i))
	if err != nil {
		return synth.Record{}, err
	}
	return parseRecord(body, r.kinds)
}

// fetch performs a GET and returns the body of a 200 response. Error bodies
// are turned back into AppErrors carrying the server's code.
func (r *RemoteReader) fetch(ctx context.Context, path string) ([]byte, error) {
	url := r.config.url(path)
	req, err := r.buildRequest(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, fmt.Errorf("GET %s: %w", url, err))
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, errors.IOError(url, err)
	}

	if resp.StatusCode != http.StatusOK {
		code := gjson.GetBytes(body, "code").String()
		msg := gjson.GetBytes(body, "error").String()
		if code == "" {
			code = errors.CodeInternalError
			msg = fmt.Sprintf("server returned status %d", resp.StatusCode)
		}
		return nil, errors.New(code, msg)
	}
	return body, nil
}

func (r *RemoteReader) buildRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}
	if r.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.Token)
	}
	return req, nil
}

func parseSchema(body []byte) (SchemaResponse, error) {
	if !gjson.ValidBytes(body) {
		return SchemaResponse{}, errors.InvalidInput("schema response is not valid JSON")
	}
	doc := gjson.ParseBytes(body)
	schema := SchemaResponse{
		Size:      int(doc.Get("size").Int()),
		NumModels: int(doc.Get("num_models").Int()),
		SeqLen:    int(doc.Get("seq_len").Int()),
		Columns:   make(map[string]string),
	}
	if schema.NumModels <= 0 {
		return SchemaResponse{}, errors.InvalidInput("schema response has no models")
	}
	doc.Get("columns").ForEach(func(name, kind gjson.Result) bool {
		schema.Columns[name.String()] = kind.String()
		return true
	})
	return schema, nil
}

// parseRecord decodes the flat record encoding. Columns absent from the
// schema are decoded as float.
func parseRecord(body []byte, kinds map[string]synth.ValueKind) (synth.Record, error) {
	if !gjson.ValidBytes(body) {
		return synth.Record{}, errors.InvalidInput("item response is not valid JSON")
	}
	rec := synth.Record{Columns: make(map[string]synth.Column)}
	var bad string
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == synth.ClassLabelField {
			rec.ClassLabel = int(value.Int())
			return true
		}
		if !value.IsArray() {
			bad = fmt.Sprintf("column %q is not an array", name)
			return false
		}
		values := value.Array()
		kind, ok := kinds[name]
		if !ok {
			kind = synth.KindFloat
		}
		col := synth.Column{Kind: kind}
		if kind == synth.KindInt {
			col.Ints = make([]int64, len(values))
			for i, v := range values {
				col.Ints[i] = v.Int()
			}
		} else {
			col.Floats = make([]float64, len(values))
			for i, v := range values {
				f, err := floatOf(v)
				if err != nil {
					bad = fmt.Sprintf("column %q step %d: %v", name, i, err)
					return false
				}
				col.Floats[i] = f
			}
		}
		rec.Columns[name] = col
		return true
	})
	if bad != "" {
		return synth.Record{}, errors.InvalidInput(bad)
	}
	return rec, nil
}

// floatOf reads a number, or one of the strings "+Inf", "-Inf" and "NaN"
// that records use for values JSON numbers cannot carry.
func floatOf(v gjson.Result) (float64, error) {
	if v.Type == gjson.String {
		return strconv.ParseFloat(v.Str, 64)
	}
	return v.Float(), nil
}
