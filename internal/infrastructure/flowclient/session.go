package flowclient

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/go-resty/resty/v2"

	"jan-server/services/flow-api/internal/domain/flow"
)

const (
	sessionPath       = "/fx/api/auth/session"
	searchProjectPath = "/fx/api/trpc/project.searchUserProjects"
	createProjectPath = "/fx/api/trpc/project.createProject"
	creditsPath       = "/v1/credits"

	projectPageSize = 20
)

// GetAccessToken exchanges the session cookie for a short-lived bearer token.
func (c *Client) GetAccessToken(ctx context.Context, creds flow.Credentials) (string, error) {
	const op = "get_access_token"
	if creds.SessionToken == "" {
		return "", flow.NewError(flow.KindMissingCredential, op, "session token is not configured")
	}

	result, err := c.once(ctx, op, func(ctx context.Context) (*resty.Response, error) {
		return c.labsRequest(ctx, creds).Get(sessionPath)
	})
	if err != nil {
		return "", err
	}

	token := result.Get("access_token").String()
	if token == "" {
		return "", flow.NewError(flow.KindMissingToken, op, "session response has no access_token")
	}
	return token, nil
}

// GetCredits returns the account balance and paygate tier.
func (c *Client) GetCredits(ctx context.Context, accessToken string) (flow.Credits, error) {
	result, err := c.once(ctx, "get_credits", func(ctx context.Context) (*resty.Response, error) {
		return c.sandboxRequest(ctx, accessToken).Get(creditsPath)
	})
	if err != nil {
		return flow.Credits{}, err
	}
	return flow.Credits{
		Credits:         int(result.Get("credits").Int()),
		UserPaygateTier: result.Get("userPaygateTier").String(),
	}, nil
}

type projectSearchInput struct {
	JSON struct {
		PageSize int     `json:"pageSize"`
		ToolName string  `json:"toolName"`
		Cursor   *string `json:"cursor"`
	} `json:"json"`
	Meta struct {
		Values struct {
			Cursor []string `json:"cursor"`
		} `json:"values"`
	} `json:"meta"`
}

func searchInput() string {
	var in projectSearchInput
	in.JSON.PageSize = projectPageSize
	in.JSON.ToolName = flow.ToolPinhole
	in.Meta.Values.Cursor = []string{"undefined"}
	raw, _ := json.Marshal(in)
	return string(raw)
}

// ListProjects returns the first page of projects, newest first.
func (c *Client) ListProjects(ctx context.Context, creds flow.Credentials) ([]flow.Project, error) {
	result, err := c.once(ctx, "list_projects", func(ctx context.Context) (*resty.Response, error) {
		return c.labsRequest(ctx, creds).
			SetQueryParam("input", searchInput()).
			Get(searchProjectPath)
	})
	if err != nil {
		return nil, err
	}

	items := result.Get("result.data.json.result.projects").Array()
	projects := make([]flow.Project, 0, len(items))
	for _, item := range items {
		id := item.Get("projectId").String()
		if id == "" {
			continue
		}
		projects = append(projects, flow.Project{
			ID:           id,
			CreationTime: item.Get("creationTime").String(),
		})
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreationTime > projects[j].CreationTime
	})
	return projects, nil
}

// GetLatestProject returns the most recently created project. ok is false
// when the account has none yet.
func (c *Client) GetLatestProject(ctx context.Context, creds flow.Credentials) (flow.Project, bool, error) {
	projects, err := c.ListProjects(ctx, creds)
	if err != nil {
		return flow.Project{}, false, err
	}
	if len(projects) == 0 {
		return flow.Project{}, false, nil
	}
	return projects[0], true, nil
}

type createProjectBody struct {
	JSON struct {
		ProjectTitle string `json:"projectTitle"`
		ToolName     string `json:"toolName"`
	} `json:"json"`
}

// CreateProject creates a project. An empty title becomes the current time,
// formatted like "Dec 01 - 17:12".
func (c *Client) CreateProject(ctx context.Context, creds flow.Credentials, title string) (string, error) {
	const op = "create_project"
	if title == "" {
		title = flow.DefaultProjectTitle(c.now())
	}

	var body createProjectBody
	body.JSON.ProjectTitle = title
	body.JSON.ToolName = flow.ToolPinhole

	result, err := c.once(ctx, op, func(ctx context.Context) (*resty.Response, error) {
		return c.labsRequest(ctx, creds).SetBody(body).Post(createProjectPath)
	})
	if err != nil {
		return "", err
	}

	id := result.Get("result.data.json.result.projectId").String()
	if id == "" {
		return "", flow.NewError(flow.KindHTTP, op, "create response has no projectId")
	}
	c.log.Info().Str("project_id", id).Str("title", title).Msg("created upstream project")
	return id, nil
}

// GetOrCreateProject returns the latest project, creating one when the
// account has none. Concurrent callers with the same session are serialized.
func (c *Client) GetOrCreateProject(ctx context.Context, creds flow.Credentials) (string, error) {
	if c.locker == nil {
		return c.getOrCreateProject(ctx, creds)
	}

	var id string
	err := c.locker.WithProjectLock(ctx, creds.SessionToken, func(ctx context.Context) error {
		var err error
		id, err = c.getOrCreateProject(ctx, creds)
		return err
	})
	return id, err
}

func (c *Client) getOrCreateProject(ctx context.Context, creds flow.Credentials) (string, error) {
	project, ok, err := c.GetLatestProject(ctx, creds)
	if err != nil {
		return "", err
	}
	if ok {
		return project.ID, nil
	}
	return c.CreateProject(ctx, creds, "")
}
