package extractor_test

import (
	"fmt"
	"strings"
)

// Builders for entity pages shaped like the site's markup.

func page(name string, blocks ...string) []byte {
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%[1]s</title></head>
<body>
<main id="main">
  <h1>%[1]s</h1>
  <div class="sv-tabs-panel active">
    <div class="grid-row">
%[2]s
    </div>
  </div>
</main>
</body>
</html>`, name, strings.Join(blocks, "\n")))
}

func dexBlock(number string) string {
	return fmt.Sprintf(`<div class="grid-col">
  <h2>Pokédex data</h2>
  <table class="vitals-table">
    <tbody>
      <tr><th>National №</th><td><strong>%s</strong></td></tr>
      <tr><th>Type</th><td><a class="type-icon type-electric" href="/type/electric">Electric</a></td></tr>
    </tbody>
  </table>
</div>`, number)
}

func statsBlock(rows ...string) string {
	return fmt.Sprintf(`<div class="grid-col">
  <h2>Base stats</h2>
  <div class="resp-scroll">
    <table class="vitals-table">
      <tbody>
%s
      </tbody>
      <tfoot><tr><th>Total</th><td class="cell-total">320</td></tr></tfoot>
    </table>
  </div>
</div>`, strings.Join(rows, "\n"))
}

func statRow(label string, cells ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<tr><th>%s</th>", label)
	for i, c := range cells {
		fmt.Fprintf(&b, `<td class="cell-num">%s</td>`, c)
		if i == 0 {
			b.WriteString(`<td class="cell-barchart"><div class="barchart-bar"></div></td>`)
		}
	}
	b.WriteString("</tr>")
	return b.String()
}

func movesBlock(rows ...string) string {
	return fmt.Sprintf(`<div class="grid-col">
  <h3>Moves learnt by level up</h3>
  <p>Pikachu learns the following moves.</p>
  <div class="resp-scroll">
    <table class="data-table">
      <thead><tr><th>Lv.</th><th>Move</th><th>Type</th><th>Cat.</th><th>Power</th><th>Acc.</th></tr></thead>
      <tbody>
%s
      </tbody>
    </table>
  </div>
</div>`, strings.Join(rows, "\n"))
}

func moveRow(name, level, power, acc, typ, category string) string {
	nameCell := `<td class="cell-name"></td>`
	if name != "" {
		nameCell = fmt.Sprintf(`<td class="cell-name"><a class="ent-name" href="/move/x">%s</a></td>`, name)
	}
	return fmt.Sprintf(`<tr><td class="cell-num">%s</td>%s`+
		`<td class="cell-icon"><a class="type-icon" href="/type/x">%s</a></td>`+
		`<td class="cell-icon text-center"><img src="/move-%s.png" alt="%s" title="%s"></td>`+
		`<td class="cell-num">%s</td><td class="cell-num">%s</td></tr>`,
		level, nameCell, typ, category, category, category, power, acc)
}

const homePage = `<!DOCTYPE html>
<html><body>
<nav>
  <a class="type-icon type-normal" href="/type/normal">Normal</a>
  <a class="type-icon type-fire" href="/type/fire">Fire</a>
  <a class="type-icon type-water" href="https://pokemondb.net/type/water">Water</a>
  <a class="type-icon type-fire" href="/type/fire">Fire</a>
  <a class="type-icon">No href</a>
</nav>
<a href="/pokedex/all">Pokédex</a>
</body></html>`

const categoryPage = `<!DOCTYPE html>
<html><body>
<div class="infocard-list">
  <div class="infocard">
    <span class="infocard-lg-img"><a href="/pokedex/pikachu"><img src="pikachu.png"></a></span>
    <span class="infocard-lg-data"><a class="ent-name" href="/pokedex/pikachu">Pikachu</a></span>
  </div>
  <div class="infocard">
    <span class="infocard-lg-data"><a class="ent-name" href="/pokedex/raichu">Raichu</a></span>
  </div>
</div>
<a class="ent-name" href="/pokedex/outside">Not in a card</a>
</body></html>`

const emptyCategoryPage = `<!DOCTYPE html>
<html><body><h1>Stellar type</h1><p>No Pokémon have this type.</p></body></html>`
