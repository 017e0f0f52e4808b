package parser

import "testing"

func TestAltrexTable(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://www.altrex.com/nl/onderdelen", `
	<div class="parts">
	  <a href="/nl/part/100" class="product item">
	    <div class="col image"><img src="/media/100.png"></div>
	    <div class="col name">Borgpen</div>
	    <div class="col sku"><span class="label">Artikelnr.</span> 100200</div>
	    <div class="col price">€ 4,25</div>
	    <div class="col stock"><div class="stock-status-wrapper"><span class="in-stock"></span></div></div>
	  </a>
	  <a href="/nl/part/101" class="product item">
	    <div class="col name">Voetplaat</div>
	    <div class="col sku"><span class="label">Artikelnr.</span> 100201</div>
	    <div class="col price">€ 19,00</div>
	    <div class="col stock"><div class="stock-status-wrapper"><span class="out-of-stock"></span></div></div>
	  </a>
	  <a href="/nl/part/102" class="product item">
	    <div class="col name">Wiel</div>
	    <div class="col stock">Voorraad 12</div>
	  </a>
	  <a href="/nl/part/103" class="product item">
	    <div class="col image"><img src="/media/103.png"></div>
	  </a>
	</div>`)

	records := NewAltrexTable().Extract(page)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}

	first := records[0]
	if first.Title != "Borgpen" || first.URL != "https://www.altrex.com/nl/part/100" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.SKU != "100200" || first.Description != "SKU: 100200" {
		t.Fatalf("label must be stripped from sku: %+v", first)
	}
	if first.Price != "4,25" || first.Currency != "EUR" || first.Brand != "Altrex" {
		t.Fatalf("unexpected price fields: %+v", first)
	}
	if first.Image != "https://www.altrex.com/media/100.png" {
		t.Fatalf("unexpected image: %q", first.Image)
	}
	if first.Stock != "In Stock" {
		t.Fatalf("unexpected stock: %q", first.Stock)
	}

	if records[1].Stock != "Out of Stock" {
		t.Fatalf("unexpected stock: %q", records[1].Stock)
	}
	if records[2].Stock != "12" {
		t.Fatalf("expected label stripped from raw stock, got %q", records[2].Stock)
	}
	if records[2].Description != "" || records[2].Image != "" {
		t.Fatalf("unexpected optional fields: %+v", records[2])
	}
}

func TestAltrexTableNeedsSeveralRows(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://www.altrex.com/", `<a href="/p" class="product item"><div class="col name">Only row</div></a>`)
	if records := NewAltrexTable().Extract(page); len(records) != 0 {
		t.Fatalf("single row must not match, got %+v", records)
	}
}
