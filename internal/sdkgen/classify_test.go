package sdkgen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/swagger2sdk/internal/spec"
)

func mustRules(t *testing.T, rules ...DeprecationRule) *Rules {
	t.Helper()
	r, err := NewRules(rules...)
	if err != nil {
		t.Fatalf("NewRules: %v", err)
	}
	return r
}

func operationIDs(ops []CompiledOperation) []string {
	var out []string
	for _, op := range ops {
		out = append(out, op.ID)
	}
	return out
}

func TestClassify_Operations(t *testing.T) {
	item := &spec.PathItem{
		Parameters: []*spec.Parameter{
			{Name: "org_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}},
		},
		Get: &spec.Operation{
			OperationID: "listOrgSites",
			Tags:        []string{"Orgs Sites"},
			Parameters: []*spec.Parameter{
				{Name: "limit", In: "query", Schema: &spec.Schema{Type: "integer", Default: float64(100)}},
			},
		},
		Post: &spec.Operation{
			OperationID: "createOrgSite",
			RequestBody: &spec.RequestBody{JSON: &spec.Schema{Type: "object"}},
		},
		Delete: &spec.Operation{OperationID: "deleteOrgSites", Deprecated: true},
	}
	c := NewClassifier(NewResolver(nil), DefaultLiterals(), nil, "1.0.0", &Diagnostics{})
	ep := c.Classify("/api/v1/orgs/{org_id}/sites", item)

	if ep.Skipped {
		t.Fatalf("path should not be skipped")
	}
	if diff := cmp.Diff([]string{"listOrgSites", "createOrgSite"}, operationIDs(ep.Operations)); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	get := ep.Operations[0]
	if get.Method != spec.GET || get.URI != "/api/v1/orgs/{org_id}/sites" {
		t.Errorf("unexpected GET: %+v", get)
	}
	if len(get.PathParams) != 1 || get.PathParams[0].Name != "org_id" {
		t.Errorf("expected org_id path param, got %+v", get.PathParams)
	}
	if len(get.QueryParams) != 1 || get.QueryParams[0].Name != "limit" {
		t.Errorf("expected limit query param, got %+v", get.QueryParams)
	}
	if !ep.Operations[1].JSONBody {
		t.Errorf("expected createOrgSite to take a JSON body")
	}
	if len(ep.PathParams) != 1 {
		t.Errorf("expected shared path params to be resolved, got %+v", ep.PathParams)
	}
}

func TestClassify_FullyDeprecatedPathIsSkipped(t *testing.T) {
	item := &spec.PathItem{
		Get:  &spec.Operation{OperationID: "getOrgLegacy", Deprecated: true},
		Post: &spec.Operation{OperationID: "updateOrgLegacy", Deprecated: true},
	}
	c := NewClassifier(NewResolver(nil), DefaultLiterals(), nil, "1.0.0", nil)
	ep := c.Classify("/api/v1/orgs/{org_id}/legacy", item)
	if !ep.Skipped {
		t.Errorf("expected path to be skipped")
	}
	if len(ep.Operations) != 0 {
		t.Errorf("expected no operations, got %v", operationIDs(ep.Operations))
	}
}

func TestClassify_ActiveRuleKeepsDeprecatedOperation(t *testing.T) {
	rules := mustRules(t, DeprecationRule{
		OldOperationID: "getOrgSiteSle", NewOperationID: "getOrgSitesSle",
		VersionIntroduced: "0.44.1", VersionRemoved: "0.45.0",
	})
	item := &spec.PathItem{
		Get: &spec.Operation{OperationID: "getOrgSiteSle", Deprecated: true},
	}

	active := NewClassifier(NewResolver(nil), DefaultLiterals(), rules, "0.44.5", nil).Classify("/p", item)
	if active.Skipped || len(active.Operations) != 1 {
		t.Fatalf("expected operation to be kept inside the window, got %+v", active)
	}
	op := active.Operations[0]
	if op.Rule == nil || op.role != roleOld {
		t.Errorf("expected old-id rule to be attached, got %+v", op)
	}

	diags := &Diagnostics{}
	expired := NewClassifier(NewResolver(nil), DefaultLiterals(), rules, "0.45.0", diags).Classify("/p", item)
	if !expired.Skipped {
		t.Errorf("expected path to be skipped once the shim expired")
	}
	if diags.Count(ShimExpired) != 1 {
		t.Errorf("expected a shim-expired diagnostic, got %v", diags.All())
	}
}

func TestClassify_NewIDCarriesRule(t *testing.T) {
	rules := mustRules(t, DeprecationRule{
		OldOperationID: "getOrgSiteSle", NewOperationID: "getOrgSitesSle",
		VersionIntroduced: "0.44.1", VersionRemoved: "0.45.0",
	})
	item := &spec.PathItem{Get: &spec.Operation{OperationID: "getOrgSitesSle"}}

	ep := NewClassifier(NewResolver(nil), DefaultLiterals(), rules, "0.44.1", nil).Classify("/p", item)
	if len(ep.Operations) != 1 || ep.Operations[0].Rule == nil || ep.Operations[0].role != roleNew {
		t.Fatalf("expected new-id rule to be attached, got %+v", ep.Operations)
	}

	ep = NewClassifier(NewResolver(nil), DefaultLiterals(), rules, "0.46.0", nil).Classify("/p", item)
	if len(ep.Operations) != 1 || ep.Operations[0].Rule != nil {
		t.Errorf("expected plain operation after removal, got %+v", ep.Operations)
	}
}

func TestClassify_PathParameterOrder(t *testing.T) {
	diags := &Diagnostics{}
	item := &spec.PathItem{
		Get: &spec.Operation{
			OperationID: "getSiteMap",
			Parameters: []*spec.Parameter{
				{Name: "map_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}},
				{Name: "site_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}},
			},
		},
	}
	c := NewClassifier(NewResolver(nil), DefaultLiterals(), nil, "1.0.0", diags)
	ep := c.Classify("/api/v1/sites/{site_id}/maps/{map_id}/{scope-id}", item)
	var names []string
	for _, p := range ep.Operations[0].PathParams {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"site_id", "map_id", "scope_id"}, names); diff != "" {
		t.Errorf("path param order mismatch (-want +got):\n%s", diff)
	}
	if diags.Count(UndeclaredPathParam) != 1 {
		t.Errorf("expected undeclared-path-param diagnostic, got %v", diags.All())
	}
	if got := ep.Operations[0].URI; got != "/api/v1/sites/{site_id}/maps/{map_id}/{scope_id}" {
		t.Errorf("unexpected URI %q", got)
	}
}

func TestClassify_MissingOperationID(t *testing.T) {
	diags := &Diagnostics{}
	item := &spec.PathItem{Get: &spec.Operation{}, Put: &spec.Operation{OperationID: "updateSelf"}}
	ep := NewClassifier(NewResolver(nil), DefaultLiterals(), nil, "1.0.0", diags).Classify("/api/v1/self", item)
	if diff := cmp.Diff([]string{"updateSelf"}, operationIDs(ep.Operations)); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	if diags.Count(MissingOperationID) != 1 {
		t.Errorf("expected missing-operation-id diagnostic, got %v", diags.All())
	}
}

func TestClassify_NoShimWhenOldIDDeclared(t *testing.T) {
	rules := mustRules(t, DeprecationRule{
		OldOperationID: "getOrgSiteSle", NewOperationID: "getOrgSitesSle",
		VersionIntroduced: "0.44.1", VersionRemoved: "0.45.0",
	})
	doc := &spec.Document{Paths: []spec.PathEntry{
		{Path: "/api/v1/orgs/{org_id}/sle", Item: &spec.PathItem{Get: &spec.Operation{OperationID: "getOrgSiteSle"}}},
		{Path: "/api/v1/orgs/{org_id}/sle/sites", Item: &spec.PathItem{Get: &spec.Operation{OperationID: "getOrgSitesSle"}}},
	}}
	c := NewClassifier(NewResolver(nil), DefaultLiterals(), rules, "0.44.5", nil)
	c.DeclareOperations(doc)

	old := c.Classify(doc.Paths[0].Path, doc.Paths[0].Item)
	if len(old.Operations) != 1 || old.Operations[0].role != roleOld {
		t.Fatalf("expected the old operation to stay decorated, got %+v", old.Operations)
	}
	renamed := c.Classify(doc.Paths[1].Path, doc.Paths[1].Item)
	if len(renamed.Operations) != 1 || renamed.Operations[0].Rule != nil {
		t.Errorf("expected no shim rule on the new operation, got %+v", renamed.Operations)
	}
}

func TestClassify_SharedParameterDiagnosticNamesOperation(t *testing.T) {
	diags := &Diagnostics{}
	item := &spec.PathItem{
		Parameters: []*spec.Parameter{
			{Name: "org_id", In: "path", Required: true, Schema: &spec.Schema{Type: "string"}},
			{Name: "window", In: "query", Schema: &spec.Schema{Type: "duration"}},
		},
		Get:  &spec.Operation{OperationID: "getOrgSle"},
		Post: &spec.Operation{OperationID: "updateOrgSle"},
	}
	NewClassifier(NewResolver(nil), DefaultLiterals(), nil, "1.0.0", diags).Classify("/api/v1/orgs/{org_id}/sle", item)

	var got []string
	for _, d := range diags.All() {
		if d.Kind == UnknownType {
			got = append(got, d.Operation+" "+d.Parameter)
		}
	}
	if diff := cmp.Diff([]string{"getOrgSle window", "updateOrgSle window"}, got); diff != "" {
		t.Errorf("unknown-type diagnostics mismatch (-want +got):\n%s", diff)
	}
}
