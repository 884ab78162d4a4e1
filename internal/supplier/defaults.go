package supplier

import "time"

func text(selector string, fallbacks ...string) FieldSpec {
	return FieldSpec{Selector: selector, Kind: KindPlainText, Fallbacks: fallbacks}
}

func block(selector string, fallbacks ...string) FieldSpec {
	return FieldSpec{Selector: selector, Kind: KindConcatenatedBlock, Fallbacks: fallbacks}
}

func images(selector string, fallbacks ...string) FieldSpec {
	return FieldSpec{Selector: selector, Kind: KindImageCollection, Fallbacks: fallbacks}
}

// DefaultEntries returns the built-in supplier table in match priority order.
func DefaultEntries() []Config {
	return []Config{
		{
			MatchKey:          ".vevor.",
			DisplayName:       "Vevor",
			RequiresRendering: true,
			Fields: Fields{
				Title: text("h1"),
				Price: FieldSpec{
					Selector:  ".DM_co-shopPrice",
					Kind:      KindAttributeDerived,
					Attribute: "data-currency",
					Suffix:    " €",
				},
				Description: FieldSpec{Selector: "ul.detailGuide_cont li", Kind: KindListItems},
				Images:      images(".img-normal"),
			},
		},
		{
			MatchKey:          "www.amazon.",
			DisplayName:       "Amazon",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text("span#productTitle"),
				Price:       text(".a-offscreen"),
				Description: block("div#feature-bullets"),
				Images: FieldSpec{
					Selector:        ".a-dynamic-image",
					Kind:            KindImageCollection,
					Manifest:        "data-a-dynamic-image",
					HiResAttributes: []string{"data-old-hires", "data-large-image"},
				},
			},
			Render: RenderProfile{
				Thumbnails: &ThumbnailExpansion{
					Selector: "#altImages li.imageThumbnail",
					Max:      10,
					Delay:    500 * time.Millisecond,
					Wait:     10 * time.Second,
				},
			},
			Pacing: Pacing{Min: 5 * time.Second, Max: 10 * time.Second},
		},
		{
			MatchKey:          "www.cdiscount.com",
			DisplayName:       "Cdiscount",
			RequiresRendering: false,
			Fields: Fields{
				Title:       text("h1"),
				Price:       text("#DisplayPrice"),
				Description: block("div.c-productHighlights__list", "#MarketingLongDescription"),
				Images:      images(".c-productViewer__controls img"),
			},
		},
		{
			MatchKey:          "www.manomano.fr",
			DisplayName:       "Manomano",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text("h1"),
				Price:       text(".ETmrsv"),
				Description: block("div.FGeuYs"),
				Images:      images(".Ye1WCg img"),
			},
			Render: RenderProfile{
				ReadMore: []string{`button:has-text("Voir plus")`, `button:has-text("Lire la suite")`},
			},
			Pacing: Pacing{Min: 4 * time.Second, Max: 8 * time.Second},
		},
		{
			MatchKey:          "www.gifi.fr",
			DisplayName:       "Gifi",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text(".product-name"),
				Price:       text(".sr-only"),
				Description: block(".product-description"),
				Images:      images(".swiper-wrapper img"),
			},
		},
		{
			MatchKey:          "www.leroymerlin.fr",
			DisplayName:       "Leroy Merlin",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text("h1"),
				Price:       text(".kl-hidden-accessibility"),
				Description: block("#main-characteristics-description"),
				Images:      images(".kl-swiper__slider img"),
			},
			Render: RenderProfile{
				SettleDelay:     15 * time.Second,
				SelectorTimeout: 30 * time.Second,
				FinalDelay:      5 * time.Second,
				Headful:         true,
				ReadMore:        []string{`button:has-text("Voir plus")`},
			},
			Pacing: Pacing{Min: 8 * time.Second, Max: 15 * time.Second},
		},
		{
			MatchKey:          ".aliexpress.",
			DisplayName:       "AliExpress",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text("h1"),
				Price:       text(".price-default--current--F8OlYIo"),
				Description: FieldSpec{Kind: KindEmpty},
				Images:      images(".slider--slider--VKj5hty img"),
			},
		},
		{
			MatchKey:          "www.bol.com",
			DisplayName:       "Bol.com",
			RequiresRendering: true,
			Fields: Fields{
				Title:       text("h1"),
				Price:       text(".promo-price"),
				Description: block(".product-description"),
				Images:      FieldSpec{Kind: KindEmpty},
			},
		},
	}
}

// DefaultRegistry returns the registry of built-in suppliers.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultEntries()...)
	if err != nil {
		panic(err)
	}
	return r
}
