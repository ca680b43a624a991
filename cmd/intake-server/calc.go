package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/intake/intake/internal/calc"
)

func calcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Run the calculators without a database",
	}
	cmd.AddCommand(calcBMICmd())
	cmd.AddCommand(calcProjectCmd())
	return cmd
}

func calcBMICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Compute a body-mass index",
		RunE: func(cmd *cobra.Command, args []string) error {
			weight, _ := cmd.Flags().GetFloat64("poids")
			height, _ := cmd.Flags().GetFloat64("taille")

			bmi, issues := calc.BMI(weight, height)
			w := cmd.OutOrStdout()
			printIssues(w, issues)
			category := calc.BMICategory(bmi)
			fmt.Fprintf(w, "IMC: %.2f (%s)\n", bmi, category.Label())
			return nil
		},
	}
	cmd.Flags().Float64("poids", 0, "Weight in kg")
	cmd.Flags().Float64("taille", 0, "Height in cm")
	return cmd
}

func calcProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compute quantities, costs and safety for a concrete project",
		RunE: func(cmd *cobra.Command, args []string) error {
			constantsFile, _ := cmd.Flags().GetString("constants")
			k, err := loadConstants(constantsFile)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			num := func(name string) float64 {
				v, _ := f.GetFloat64(name)
				return v
			}
			structureType, _ := f.GetString("type")
			shape, _ := f.GetString("forme")

			in := calc.ProjectInput{
				StructureType:     structureType,
				Shape:             calc.Shape(shape),
				Length:            num("longueur"),
				Width:             num("largeur"),
				Height:            num("hauteur"),
				Thickness:         num("epaisseur"),
				StaticLoad:        num("charge-statique"),
				DynamicLoad:       num("charge-dynamique"),
				WindLoad:          num("charge-vent"),
				SnowLoad:          num("charge-neige"),
				SeismicLoad:       num("charge-sismique"),
				StrengthMPa:       num("resistance"),
				SafetyCoefficient: num("coefficient"),
				CementDosage:      num("ciment"),
				WaterDosage:       num("eau"),
				SandDosage:        num("sable"),
				GravelDosage:      num("gravier"),
			}
			d, issues := calc.ComputeProject(in, k)

			w := cmd.OutOrStdout()
			printIssues(w, issues)
			printDerived(w, d, calc.SafetyVerdict(d.SafetyMargin, in.SafetyCoefficient))
			return nil
		},
	}

	f := cmd.Flags()
	f.String("constants", "", "YAML file overriding the engineering constants")
	f.String("type", "Bâtiment", "Structure type")
	f.String("forme", string(calc.ShapeRectangular), "Plan shape")
	f.Float64("longueur", 10, "Length in m")
	f.Float64("largeur", 5, "Width in m")
	f.Float64("hauteur", 3, "Height in m")
	f.Float64("epaisseur", 0.2, "Thickness in m")
	f.Float64("charge-statique", 0, "Static load in kN")
	f.Float64("charge-dynamique", 0, "Dynamic load in kN")
	f.Float64("charge-vent", 0, "Wind load in kN")
	f.Float64("charge-neige", 0, "Snow load in kN")
	f.Float64("charge-sismique", 0, "Seismic load in kN")
	f.Float64("resistance", 25, "Concrete strength in MPa")
	f.Float64("coefficient", 1.5, "Required safety coefficient")
	f.Float64("ciment", 350, "Cement dosage in kg/m³")
	f.Float64("eau", 175, "Water dosage in kg/m³")
	f.Float64("sable", 700, "Sand dosage in kg/m³")
	f.Float64("gravier", 1100, "Gravel dosage in kg/m³")
	return cmd
}

func printIssues(w io.Writer, issues []calc.InvalidInput) {
	for _, i := range issues {
		warn.Fprintf(w, "warning: %s\n", i.Error())
	}
}

func printDerived(w io.Writer, d calc.ProjectDerived, v calc.Verdict) {
	heading.Fprintln(w, "Quantities")
	fmt.Fprintf(w, "  volume        %10.3f m³\n", d.VolumeM3)
	fmt.Fprintf(w, "  cement        %10.2f kg\n", d.CementKg)
	fmt.Fprintf(w, "  water         %10.2f kg\n", d.WaterKg)
	fmt.Fprintf(w, "  sand          %10.2f kg\n", d.SandKg)
	fmt.Fprintf(w, "  gravel        %10.2f kg\n", d.GravelKg)

	heading.Fprintln(w, "Costs")
	fmt.Fprintf(w, "  materials     %10.2f €\n", d.MaterialsCost)
	fmt.Fprintf(w, "  labor         %10.2f €\n", d.LaborCost)
	fmt.Fprintf(w, "  total         %10.2f €\n", d.TotalCost)
	fmt.Fprintf(w, "  duration      %10d days\n", d.DurationDays)

	heading.Fprintln(w, "Structure")
	fmt.Fprintf(w, "  total load    %10.2f kN\n", d.TotalLoadKN)
	fmt.Fprintf(w, "  stress        %10.2f MPa\n", d.StressMPa)
	fmt.Fprintf(w, "  resistance    %10.2f MPa\n", d.StructuralResistanceMPa)
	fmt.Fprintf(w, "  displacement  %10.2f mm\n", d.DisplacementMM)
	fmt.Fprintf(w, "  beam          %.2f x %.2f m, column %.2f m\n", d.BeamWidth, d.BeamHeight, d.ColumnWidth)

	line := fmt.Sprintf("  safety margin %10.2f (%s)\n", d.SafetyMargin, v)
	if v == calc.VerdictAcceptable {
		good.Fprint(w, line)
	} else {
		warn.Fprint(w, line)
	}
}
