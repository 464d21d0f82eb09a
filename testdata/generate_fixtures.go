//go:build ignore

// This program generates the sample data files used by benchmarks and manual
// testing: ventas.json, articulos.csv and ventas.xlsx.
package main

import (
	"fmt"
	"os"

	"github.com/klytics/tabkit/internal/export"
)

const ventasJSON = `{
  "Ventas": [
    {"Trimestre": "Q1 2024", "Producto": "Ibuprofeno 600", "Unidades": "12,500", "Importe": "31,250.00", "Crecimiento": "12%"},
    {"Trimestre": "Q1 2024", "Producto": "Paracetamol 1g", "Unidades": "45,000", "Importe": "67,500.00", "Crecimiento": "8%"},
    {"Trimestre": "Q2 2024", "Producto": "Ibuprofeno 600", "Unidades": "13,800", "Importe": "34,500.00", "Crecimiento": "10.4%"},
    {"Trimestre": "Q2 2024", "Producto": "Paracetamol 1g", "Unidades": "52,000", "Importe": "78,000.00", "Crecimiento": "15.6%"},
    {"Trimestre": "@bold@Total", "Producto": "", "Unidades": "@bold@123,300", "Importe": "@bold@211,250.00", "Crecimiento": ""}
  ],
  "Notas": [
    {"Nota": "Importes en euros.\nIVA no incluido."},
    {"Nota": "@color:#C00000@Q2 incluye devoluciones."}
  ]
}
`

const articulosCSV = `Articulo_Id;Articulo_Nombre;Stock
1;Ibuprofeno 600 mg 40 comprimidos;1.200
2;Paracetamol 1 g 20 comprimidos;3.450
3;Omeprazol 20 mg 28 cápsulas;980
`

func main() {
	files := map[string]string{
		"testdata/ventas.json":   ventasJSON,
		"testdata/articulos.csv": articulosCSV,
	}
	for path, body := range files {
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	src, err := export.LoadFile("testdata/ventas.json", ',')
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ventas.json: %v\n", err)
		os.Exit(1)
	}
	if _, err := export.File(src, "testdata/ventas.xlsx", export.Options{}); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating ventas.xlsx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}
