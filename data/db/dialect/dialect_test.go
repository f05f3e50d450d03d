package dialect

import "testing"

func TestRebind_Postgres(t *testing.T) {
	d := New("postgres")
	q := "SELECT * FROM t WHERE a = ? AND b IN (?, ?)"
	got := d.Rebind(q)
	want := "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"
	if got != want {
		t.Fatalf("Rebind mismatch\nwant: %s\ngot:  %s", want, got)
	}
}

func TestRebind_NoChangeForMySQLSQLite(t *testing.T) {
	tests := []struct {
		name string
		d    Dialect
	}{
		{"mysql", New("mysql")},
		{"sqlite", New("sqlite")},
		{"unknown", New("unknown")},
	}

	orig := "DELETE FROM t WHERE id = ? AND name = ?"
	for _, tt := range tests {
		if got := tt.d.Rebind(orig); got != orig {
			t.Fatalf("%s: expected no change, got %s", tt.name, got)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{"mysql", "users", "`users`"},
		{"mysql", "app.users", "`app`.`users`"},
		{"sqlite", "users", `"users"`},
		{"postgres", "users.name", `"users"."name"`},
		{"unknown", "users", "users"},
		{"mysql", "", ""},
	}

	for _, tt := range tests {
		if got := New(tt.dialect).QuoteIdentifier(tt.in); got != tt.want {
			t.Fatalf("%s QuoteIdentifier(%q) = %q, want %q", tt.dialect, tt.in, got, tt.want)
		}
	}
}

func TestNameNormalization(t *testing.T) {
	if New("SQLite3").Name() != NameSQLite {
		t.Fatal("sqlite3 should normalize to sqlite")
	}
	if New(" PostgreSQL ").Name() != NamePostgres {
		t.Fatal("postgresql should normalize to postgres")
	}
	if New("oracle").Name() != NameUnknown {
		t.Fatal("unrecognized driver should map to unknown")
	}
}

func TestSupportsDeleteLimit(t *testing.T) {
	if !New("mysql").SupportsDeleteLimit() || !New("sqlite").SupportsDeleteLimit() {
		t.Fatal("mysql/sqlite should support DELETE LIMIT")
	}
	if New("postgres").SupportsDeleteLimit() {
		t.Fatal("postgres should not support DELETE LIMIT")
	}
}
