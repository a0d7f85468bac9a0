package sdkgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/swagger2sdk/internal/spec"
)

func sitesDocument() *spec.Document {
	orgID := &spec.Parameter{Ref: "org_id"}
	return &spec.Document{
		Title: "Mist API",
		Paths: []spec.PathEntry{
			{Path: "/api/v1/orgs/{org_id}/sites", Item: &spec.PathItem{
				Parameters: []*spec.Parameter{orgID},
				Get: &spec.Operation{
					OperationID: "listOrgSites",
					Tags:        []string{"Orgs Sites"},
					Parameters: []*spec.Parameter{
						{Name: "limit", In: "query", Schema: &spec.Schema{Type: "integer", Default: float64(100)}},
					},
				},
				Post: &spec.Operation{
					OperationID: "createOrgSite",
					Tags:        []string{"Orgs Sites"},
					RequestBody: &spec.RequestBody{JSON: &spec.Schema{Ref: "Site"}},
				},
			}},
			{Path: "/api/v1/orgs/{org_id}/sites/{site_id}", Item: &spec.PathItem{
				Parameters: []*spec.Parameter{orgID, {Name: "site_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}}},
				Delete:     &spec.Operation{OperationID: "deleteOrgSite", Deprecated: true},
			}},
			{Path: "/api/v1/installer/orgs/{org_id}/devices", Item: &spec.PathItem{
				Parameters: []*spec.Parameter{orgID},
				Get:        &spec.Operation{OperationID: "listInstallerDevices"},
			}},
			{Path: "/api/v1/orgs/{org_id}/sle", Item: &spec.PathItem{
				Parameters: []*spec.Parameter{orgID},
				Get:        &spec.Operation{OperationID: "getOrgSitesSle", Parameters: []*spec.Parameter{{Ref: "nope"}}},
			}},
		},
		ParameterComponents: map[string]*spec.Parameter{
			"org_id": {Name: "org_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}},
		},
		SchemaComponents: map[string]*spec.Schema{"Site": {Type: "object"}},
	}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Package:        "mistapi",
		CurrentVersion: "0.44.5",
		Rules: mustRules(t, DeprecationRule{
			OldOperationID: "getOrgSiteSle", NewOperationID: "getOrgSitesSle",
			VersionIntroduced: "0.44.1", VersionRemoved: "0.45.0",
		}),
		DocBaseURL: DefaultDocBaseURL,
	}
}

func filePaths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestGenerate(t *testing.T) {
	files, res, err := Generate(sitesDocument(), testOptions(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{
		"mistapi/api/__init__.py",
		"mistapi/api/v1/__init__.py",
		"mistapi/api/v1/orgs/__init__.py",
		"mistapi/api/v1/orgs/sites.py",
		"mistapi/api/v1/orgs/sle.py",
		"mistapi/api/v1/installer/__init__.py",
		"mistapi/api/v1/installer/orgs/__init__.py",
		"mistapi/api/v1/installer/orgs/devices.py",
	}
	if diff := cmp.Diff(want, filePaths(files)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"/api/v1/orgs/{org_id}/sites/{site_id}"}, res.SkippedPaths); diff != "" {
		t.Errorf("skipped paths mismatch (-want +got):\n%s", diff)
	}
	if res.Operations != 4 || res.Functions != 5 {
		t.Errorf("expected 4 operations and 5 functions, got %d and %d", res.Operations, res.Functions)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != UnresolvedRef {
		t.Errorf("expected a single unresolved-ref diagnostic, got %v", res.Diagnostics)
	}

	orgs := res.Tree.Folder("api", "v1", "orgs")
	if diff := cmp.Diff([]string{"listOrgSites", "createOrgSite"}, orgs.Module("sites").FunctionNames()); diff != "" {
		t.Errorf("sites functions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"sites", "sle"}, orgs.Children()); diff != "" {
		t.Errorf("index children mismatch (-want +got):\n%s", diff)
	}

	index := files[2].Content
	if strings.Count(index, "import sites\n") != 1 {
		t.Errorf("expected sites to be imported once:\n%s", index)
	}
	if !strings.Contains(files[3].Content, "def createOrgSite(\n    mist_session: _APISession,\n    org_id: str,\n    body: dict,\n) -> _APIResponse:") {
		t.Errorf("unexpected sites module:\n%s", files[3].Content)
	}
	if strings.Contains(files[3].Content, "import deprecation") {
		t.Errorf("sites module has no shims")
	}
	sle := files[4].Content
	if !strings.Contains(sle, "import deprecation\n") || !strings.Contains(sle, "def getOrgSiteSle(") {
		t.Errorf("expected shim in sle module:\n%s", sle)
	}
	if !strings.Contains(files[3].Content, "API doc: "+DefaultDocBaseURL+"/orgs/sites/list-org-sites\n") {
		t.Errorf("expected doc link:\n%s", files[3].Content)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	first, _, err := Generate(sitesDocument(), testOptions(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _, err := Generate(sitesDocument(), testOptions(t))
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestGenerate_ShimDroppedAfterRemoval(t *testing.T) {
	opts := testOptions(t)
	opts.CurrentVersion = "0.45.0"
	_, res, err := Generate(sitesDocument(), opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mod := res.Tree.Folder("api", "v1", "orgs").Module("sle")
	if diff := cmp.Diff([]string{"getOrgSitesSle"}, mod.FunctionNames()); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}
	if mod.Deprecated {
		t.Errorf("module should not import deprecation")
	}
}

func TestNew_Errors(t *testing.T) {
	opts := testOptions(t)
	opts.CurrentVersion = "0.44"
	if _, err := New(sitesDocument(), opts); !errors.Is(err, ErrBadVersion) {
		t.Errorf("expected ErrBadVersion, got %v", err)
	}
	opts = testOptions(t)
	opts.Package = ""
	if _, err := New(sitesDocument(), opts); err == nil {
		t.Errorf("expected error for empty package")
	}
	if _, err := New(nil, testOptions(t)); err == nil {
		t.Errorf("expected error for nil document")
	}
}

func TestGenerate_RenameWithBothIDsDeclared(t *testing.T) {
	orgID := &spec.Parameter{Ref: "org_id"}
	doc := sitesDocument()
	doc.Paths = []spec.PathEntry{
		{Path: "/api/v1/orgs/{org_id}/sle", Item: &spec.PathItem{
			Parameters: []*spec.Parameter{orgID},
			Get:        &spec.Operation{OperationID: "getOrgSiteSle", Deprecated: true},
		}},
		{Path: "/api/v1/orgs/{org_id}/sle/sites", Item: &spec.PathItem{
			Parameters: []*spec.Parameter{orgID},
			Get:        &spec.Operation{OperationID: "getOrgSitesSle"},
		}},
	}
	_, res, err := Generate(doc, testOptions(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	mod := res.Tree.Folder("api", "v1", "orgs").Module("sle")
	if diff := cmp.Diff([]string{"getOrgSiteSle", "getOrgSitesSle"}, mod.FunctionNames()); diff != "" {
		t.Fatalf("functions mismatch (-want +got):\n%s", diff)
	}
	old := mod.Functions[0]
	if !old.Deprecated || !strings.Contains(old.Source, `uri = f"/api/v1/orgs/{org_id}/sle"`) {
		t.Errorf("expected the declared old operation to keep its own URI:\n%s", old.Source)
	}
	if mod.Functions[1].Deprecated {
		t.Errorf("new operation should not be decorated:\n%s", mod.Functions[1].Source)
	}
}
