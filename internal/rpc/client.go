package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ppiankov/hglc/internal/sentence"
)

const callTimeout = 5 * time.Second

// Client connects to a SentenceService.
type Client struct {
	conn *grpc.ClientConn
}

// CompileResult is the decoded Compile response.
type CompileResult struct {
	Sentence    sentence.Sentence
	Canonical   []byte
	Fingerprint string
	Duplicate   bool
}

// Dial creates a client for addr. The connection is established lazily.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("rpc: connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return c.conn.Invoke(ctx, fullMethod(method), in, out)
}

// Compile compiles a line remotely. A rejected line comes back as a
// *sentence.Error.
func (c *Client) Compile(ctx context.Context, line string) (*CompileResult, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodCompile, wrapperspb.String(line), out); err != nil {
		return nil, fromStatus(err)
	}

	fields := out.GetFields()
	res := &CompileResult{
		Canonical:   []byte(fields["canonical"].GetStringValue()),
		Fingerprint: fields["fingerprint"].GetStringValue(),
		Duplicate:   fields["duplicate"].GetBoolValue(),
	}
	if err := json.Unmarshal(res.Canonical, &res.Sentence); err != nil {
		return nil, fmt.Errorf("rpc: decode sentence: %w", err)
	}
	return res, nil
}

// Canonicalize returns the canonical form of a JSON document.
func (c *Client) Canonicalize(ctx context.Context, doc string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, MethodCanonicalize, wrapperspb.String(doc), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Fingerprint returns the fingerprint of a JSON document.
func (c *Client) Fingerprint(ctx context.Context, doc string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.invoke(ctx, MethodFingerprint, wrapperspb.String(doc), out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Lookup returns the ledger entry for a fingerprint as a generic map.
func (c *Client) Lookup(ctx context.Context, fingerprint string) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, MethodLookup, wrapperspb.String(fingerprint), out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// fromStatus rebuilds a *sentence.Error from the ErrorInfo detail when
// present; other errors are returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain {
			continue
		}
		return &sentence.Error{
			Kind:   sentence.ErrorKind(info.GetReason()),
			Field:  sentence.Tag(info.GetMetadata()["field"]),
			Reason: info.GetMetadata()["reason"],
		}
	}
	return err
}
