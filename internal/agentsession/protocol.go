package agentsession

type fsCapabilities struct {
	ReadTextFile  bool `json:"readTextFile"`
	WriteTextFile bool `json:"writeTextFile"`
}

type clientCapabilities struct {
	Fs fsCapabilities `json:"fs"`
}

type mcpServerParam struct {
	Name    string            `json:"name"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

type initializeRequest struct {
	ClientCapabilities clientCapabilities `json:"clientCapabilities"`
	MCPServers         []mcpServerParam   `json:"mcpServers,omitempty"`
}

type promptRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	SandboxPolicy  string `json:"sandboxPolicy,omitempty"`
	ApprovalPolicy string `json:"approvalPolicy,omitempty"`
}

func initializeParams(in Input) initializeRequest {
	req := initializeRequest{
		ClientCapabilities: clientCapabilities{
			Fs: fsCapabilities{
				ReadTextFile:  in.AllowFileEdits,
				WriteTextFile: in.AllowFileEdits,
			},
		},
	}
	for _, s := range in.MCPServers {
		req.MCPServers = append(req.MCPServers, mcpServerParam{
			Name:    s.Name,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
			URL:     s.URL,
		})
	}
	return req
}

func promptParams(in Input, text string) promptRequest {
	return promptRequest{
		Prompt:         text,
		Model:          in.Profile.DefaultModel,
		SandboxPolicy:  in.SandboxPolicy,
		ApprovalPolicy: in.ApprovalPolicy,
	}
}
