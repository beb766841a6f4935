package extract_test

import (
	"strings"
	"testing"

	"github.com/otabekdev/yukmonitor/internal/extract"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	testCases := []struct {
		name     string
		block    string
		expected extract.FieldSet
		accepted bool
	}{
		{
			name:  "full posting with em dash route",
			block: "Tashkent — Samarkand\nТЕНТ 20т\nНАЛИЧНЫЕ ОПЛАТА\n+998901234567",
			expected: extract.FieldSet{
				Origin:      "Tashkent",
				Destination: "Samarkand",
				TruckType:   "ТЕНТ 20т",
				PaymentType: "НАЛИЧНЫЕ ОПЛАТА",
				Phone:       "+998901234567",
			},
			accepted: true,
		},
		{
			name:  "fallback route from first two lines",
			block: "Bukhara\nKhiva\nyuk tayyor ertaga",
			expected: extract.FieldSet{
				Origin:      "Bukhara",
				Destination: "Khiva",
				CargoType:   "yuk tayyor ertaga",
			},
			accepted: true,
		},
		{
			name:     "prose only block is rejected",
			block:    "Looking for work in logistics sphere",
			expected: extract.FieldSet{},
			accepted: false,
		},
		{
			name:  "prose fallback lines exceed place length",
			block: "Мы компания которая занимается перевозками по всему Узбекистану\nЗвоните нам в любое время дня и ночи друзья",
			expected: extract.FieldSet{
				Phone: "",
			},
			accepted: false,
		},
		{
			name:  "origin with phone but no destination",
			block: "Наманган : \nгруз 20 тонн готов\n+998935551122",
			expected: extract.FieldSet{
				Origin:    "Наманган",
				CargoType: "груз 20 тонн готов",
				Phone:     "+998935551122",
			},
			accepted: true,
		},
		{
			name:  "hyphen route with spaced phone",
			block: "Andijon - Toshkent\nfura kerak\nnal tolov\n+998 90 123 45 67",
			expected: extract.FieldSet{
				Origin:      "Andijon",
				Destination: "Toshkent",
				PaymentType: "nal tolov",
				Phone:       "+998 90 123 45 67",
			},
			accepted: true,
		},
		{
			name:  "cash payment line",
			block: "Tashkent — Samarkand\nТЕНТ 20т\nНАЛИЧНЫЕ\n+998901234567",
			expected: extract.FieldSet{
				Origin:      "Tashkent",
				Destination: "Samarkand",
				TruckType:   "ТЕНТ 20т",
				PaymentType: "НАЛИЧНЫЕ",
				Phone:       "+998901234567",
			},
			accepted: true,
		},
		{
			name:  "separator priority prefers em dash over hyphen",
			block: "Qarshi-city — Termez\nref kerak 96 kub",
			expected: extract.FieldSet{
				Origin:      "Qarshicity",
				Destination: "Termez",
				TruckType:   "ref kerak 96 kub",
			},
			accepted: true,
		},
		{
			name:  "route line cleaned of digits and punctuation",
			block: "г.Ташкент → г.Фергана!!!\nтент 90 кубов\nперечисление",
			expected: extract.FieldSet{
				Origin:      "гТашкент",
				Destination: "гФергана",
				TruckType:   "тент 90 кубов",
				PaymentType: "перечисление",
			},
			accepted: true,
		},
		{
			name:  "keyword match is case insensitive",
			block: "Urgench — Nukus\nYuk: paxta 15 tonna",
			expected: extract.FieldSet{
				Origin:      "Urgench",
				Destination: "Nukus",
				CargoType:   "Yuk: paxta 15 tonna",
			},
			accepted: true,
		},
		{
			name:     "single line without separator yields nothing",
			block:    "freight services available",
			expected: extract.FieldSet{},
			accepted: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := e.Extract(tc.block)
			if got != tc.expected {
				t.Errorf("Extract() = %+v, want %+v", got, tc.expected)
			}
			if accepted := e.Accept(got); accepted != tc.accepted {
				t.Errorf("Accept() = %v, want %v", accepted, tc.accepted)
			}
		})
	}
}

// Accept depends only on origin, destination, and phone; the editable fields
// never influence it.
func TestAccept(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	testCases := []struct {
		name     string
		fs       extract.FieldSet
		expected bool
	}{
		{"origin and destination", extract.FieldSet{Origin: "A", Destination: "B"}, true},
		{"origin and phone", extract.FieldSet{Origin: "A", Phone: "+998901234567"}, true},
		{"origin only", extract.FieldSet{Origin: "A"}, false},
		{"destination and phone without origin", extract.FieldSet{Destination: "B", Phone: "+998901234567"}, false},
		{"empty", extract.FieldSet{}, false},
		{"editable fields alone", extract.FieldSet{CargoType: "груз", TruckType: "тент", PaymentType: "нал"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := e.Accept(tc.fs); got != tc.expected {
				t.Errorf("Accept(%+v) = %v, want %v", tc.fs, got, tc.expected)
			}
		})
	}
}

func TestExtractPhoneShapes(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	testCases := []struct {
		name     string
		block    string
		expected string
	}{
		{"international", "Tashkent — Samarkand\n+998901234567", "+998901234567"},
		{"grouped with spaces", "Tashkent — Samarkand\n+998 90 123 45 67", "+998 90 123 45 67"},
		{"parenthesised group after leading digit", "Tashkent — Samarkand\n90 (123) 45-67", "90 (123) 45-67"},
		{"first of several wins", "Tashkent — Samarkand\n+998901234567 yoki 998907654321", "+998901234567"},
		{"too short is ignored", "Tashkent — Samarkand\ntel 12345", ""},
		{"none", "Tashkent — Samarkand\ntent kerak", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := e.Extract(tc.block).Phone; got != tc.expected {
				t.Errorf("phone = %q, want %q", got, tc.expected)
			}
		})
	}
}

// The three keyword scans are independent: one line may satisfy several sets.
func TestExtractKeywordIndependence(t *testing.T) {
	t.Parallel()

	e := extract.New(extract.DefaultKeywords())

	fs := e.Extract("Tashkent — Samarkand\nЮК БОР ТЕНТ КЕРАК ОПЛАТА НАЛ")
	line := "ЮК БОР ТЕНТ КЕРАК ОПЛАТА НАЛ"
	if fs.CargoType != line || fs.TruckType != line || fs.PaymentType != line {
		t.Errorf("expected one line to satisfy all three sets, got %+v", fs)
	}
	if !strings.Contains(fs.CargoType, "ЮК") {
		t.Errorf("cargo line %q should contain the matched keyword", fs.CargoType)
	}
}
