package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
)

// ListJobs fetches one page of jobs for the encoded query.
func (c *Client) ListJobs(ctx context.Context, apiKey string, query url.Values) (*JobList, error) {
	var list JobList
	if err := c.getJSON(ctx, apiKey, "/jobs", query.Encode(), &list); err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	return &list, nil
}

// GetJob fetches a single job.
func (c *Client) GetJob(ctx context.Context, apiKey, id string) (*Job, error) {
	var job Job
	if err := c.getJSON(ctx, apiKey, "/jobs/"+url.PathEscape(id), "", &job); err != nil {
		return nil, errors.Wrapf(err, "get job %s", id)
	}
	return &job, nil
}

// ListContacts fetches the contacts of a job.
func (c *Client) ListContacts(ctx context.Context, apiKey, jobID string) ([]Contact, error) {
	var contacts []Contact
	if err := c.getJSON(ctx, apiKey, "/jobs/"+url.PathEscape(jobID)+"/contacts", "", &contacts); err != nil {
		return nil, errors.Wrapf(err, "list contacts for job %s", jobID)
	}
	return contacts, nil
}

// DeclineReasons fetches the decline reason catalog for declineType (user or company).
func (c *Client) DeclineReasons(ctx context.Context, apiKey, declineType string) (*DeclineReasons, error) {
	var reasons DeclineReasons
	if err := c.getJSON(ctx, apiKey, "/decline-reasons/"+url.PathEscape(declineType), "", &reasons); err != nil {
		return nil, errors.Wrapf(err, "decline reasons %s", declineType)
	}
	return &reasons, nil
}

// VerifyKey checks apiKey by listing a single job. A rejected key returns
// (false, nil); only transport failures return an error.
func (c *Client) VerifyKey(ctx context.Context, apiKey string) (bool, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   "/jobs",
		Query:  url.Values{"limit": {"1"}}.Encode(),
		APIKey: apiKey,
	})
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// DecodeCoverLetter parses a cover-letter response body.
func DecodeCoverLetter(body []byte) (*CoverLetter, error) {
	var letter CoverLetter
	if err := json.Unmarshal(body, &letter); err != nil {
		return nil, errors.Wrap(err, "decode cover letter")
	}
	if letter.Content == "" {
		return nil, errors.New("decode cover letter: empty content")
	}
	return &letter, nil
}

// CreateJob creates a job from a JSON-encodable body.
func (c *Client) CreateJob(ctx context.Context, apiKey string, in any) (*Job, error) {
	var job Job
	if err := c.sendJSON(ctx, http.MethodPost, apiKey, "/jobs", in, &job); err != nil {
		return nil, errors.Wrap(err, "create job")
	}
	return &job, nil
}

// IngestJob asks the backend to import a job from a posting URL.
func (c *Client) IngestJob(ctx context.Context, apiKey string, in any) (*Job, error) {
	var job Job
	if err := c.sendJSON(ctx, http.MethodPost, apiKey, "/jobs/ingest", in, &job); err != nil {
		return nil, errors.Wrap(err, "ingest job")
	}
	return &job, nil
}

// UpdateJob applies a partial update to a job.
func (c *Client) UpdateJob(ctx context.Context, apiKey, id string, patch any) (*Job, error) {
	var job Job
	if err := c.sendJSON(ctx, http.MethodPatch, apiKey, "/jobs/"+url.PathEscape(id), patch, &job); err != nil {
		return nil, errors.Wrap(err, "update job")
	}
	return &job, nil
}

// UpdateStatus moves a job to another pipeline stage.
func (c *Client) UpdateStatus(ctx context.Context, apiKey, id, status string) (*Job, error) {
	var job Job
	body := map[string]string{"status": status}
	if err := c.sendJSON(ctx, http.MethodPatch, apiKey, "/jobs/"+url.PathEscape(id)+"/status", body, &job); err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	return &job, nil
}

func (c *Client) getJSON(ctx context.Context, apiKey, path, query string, out any) error {
	return c.doJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		APIKey: apiKey,
	}, out)
}

func (c *Client) sendJSON(ctx context.Context, method, apiKey, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	return c.doJSON(ctx, Request{
		Method: method,
		Path:   path,
		Body:   body,
		APIKey: apiKey,
	}, out)
}

func (c *Client) doJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// UnmarshalJSON keeps every field other than role_scores in Extra.
func (a *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if scores, ok := raw["role_scores"]; ok {
		if err := json.Unmarshal(scores, &a.RoleScores); err != nil {
			return errors.Wrap(err, "decode role_scores")
		}
		delete(raw, "role_scores")
	}
	a.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		a.Extra[k] = val
	}
	return nil
}
