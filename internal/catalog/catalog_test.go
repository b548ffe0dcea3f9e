package catalog

import "testing"

func TestKeysAndMaskIndexesAreUnique(t *testing.T) {
	keys := make(map[string]struct{}, len(Permissions))
	masks := make(map[int]string, len(Permissions))
	for _, p := range Permissions {
		if _, dup := keys[p.Key]; dup {
			t.Fatalf("duplicate key %q", p.Key)
		}
		keys[p.Key] = struct{}{}
		if prev, dup := masks[p.MaskIndex]; dup {
			t.Fatalf("mask index %d shared by %q and %q", p.MaskIndex, prev, p.Key)
		}
		if p.MaskIndex < 0 {
			t.Fatalf("negative mask index for %q", p.Key)
		}
		masks[p.MaskIndex] = p.Key
	}
}

func TestByKey(t *testing.T) {
	p, ok := ByKey("roles.read")
	if !ok {
		t.Fatalf("roles.read not found")
	}
	if p.MaskIndex != 20 || p.Category != "Role Management" {
		t.Fatalf("unexpected record: %+v", p)
	}

	if _, ok := ByKey("roles.unknown"); ok {
		t.Fatalf("lookup of unknown key must report absence")
	}
}

func TestCategoriesPartitionCatalog(t *testing.T) {
	cats := Categories()
	want := []string{"User Management", "Role Management", "Authentication", "System"}
	if len(cats) != len(want) {
		t.Fatalf("categories = %v, want %v", cats, want)
	}
	for i, c := range want {
		if cats[i] != c {
			t.Fatalf("categories[%d] = %q, want %q", i, cats[i], c)
		}
	}

	// The union over all categories must reconstruct the catalog exactly.
	seen := make(map[string]struct{})
	total := 0
	for _, c := range cats {
		for _, p := range ByCategory(c) {
			if p.Category != c {
				t.Fatalf("permission %q returned for category %q", p.Key, c)
			}
			if _, dup := seen[p.Key]; dup {
				t.Fatalf("permission %q appears in more than one category listing", p.Key)
			}
			seen[p.Key] = struct{}{}
			total++
		}
	}
	if total != len(Permissions) {
		t.Fatalf("union over categories has %d permissions, catalog has %d", total, len(Permissions))
	}
}

func TestByCategoryUnknownIsEmpty(t *testing.T) {
	if got := ByCategory("Warehouse"); len(got) != 0 {
		t.Fatalf("unknown category returned %d permissions", len(got))
	}
}

func TestDefaultPermissionSets(t *testing.T) {
	for _, key := range DefaultUserPermissions {
		if _, ok := ByKey(key); !ok {
			t.Fatalf("default user permission %q not in catalog", key)
		}
	}
	admin := DefaultAdminPermissions()
	if len(admin) != len(Permissions) {
		t.Fatalf("admin defaults cover %d keys, catalog has %d", len(admin), len(Permissions))
	}
}
