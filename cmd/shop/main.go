// shop 是命令行买家端：浏览目录、维护本地购物车、生成 WhatsApp 结账链接。
// 购物车落在本机文件里，和浏览器端的 localStorage 一个意思。
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"casa-comfort/internal/domain"
	"casa-comfort/internal/feature/cart"
)

const defaultPhone = "542213557519"

func main() {
	var (
		apiBase = flag.String("api", envOr("SHOP_API", "http://localhost:8080"), "storefront api base url")
		phone   = flag.String("phone", envOr("SHOP_PHONE", defaultPhone), "whatsapp phone for checkout")
		dataDir = flag.String("data", defaultDataDir(), "directory for the cart snapshot")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	p, err := cart.NewFilePersister(*dataDir)
	if err != nil {
		fatal(err)
	}
	store, err := cart.NewStore(p)
	if err != nil {
		fatal(err)
	}

	switch args[0] {
	case "products":
		err = cmdProducts(*apiBase)
	case "add":
		err = cmdAdd(store, *apiBase, args[1:])
	case "remove":
		err = withID(args[1:], store.RemoveItem)
	case "decrement":
		err = withID(args[1:], store.DecrementItem)
	case "show":
		cmdShow(store)
	case "clear":
		err = store.Clear()
	case "checkout":
		err = cmdCheckout(store, *phone, args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func cmdProducts(apiBase string) error {
	ps, err := fetchProducts(apiBase)
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		fmt.Println("no hay productos")
		return nil
	}
	for _, p := range ps {
		fmt.Printf("%4d  %-30s $%-10s %s\n", p.ID, p.Name, formatPrice(p.Price), p.Category)
	}
	return nil
}

func cmdAdd(store *cart.Store, apiBase string, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	ps, err := fetchProducts(apiBase)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if p.ID == id {
			return store.AddItem(cart.Item{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image})
		}
	}
	return fmt.Errorf("producto %d no encontrado", id)
}

func cmdShow(store *cart.Store) {
	items := store.Items()
	if len(items) == 0 {
		fmt.Println("el carrito está vacío")
		return
	}
	for _, it := range items {
		fmt.Printf("%dx %s ($%s c/u)\n", it.Quantity, it.Name, formatPrice(it.Price))
	}
	fmt.Printf("Total: $%s\n", formatPrice(store.Total()))
}

func cmdCheckout(store *cart.Store, phone string, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	nombre := fs.String("nombre", "", "nombre")
	apellido := fs.String("apellido", "", "apellido")
	celular := fs.String("celular", "", "celular")
	_ = fs.Parse(args)

	link, err := store.CheckoutLink(phone, cart.Contact{
		Nombre: *nombre, Apellido: *apellido, Celular: *celular,
	})
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}

func fetchProducts(apiBase string) ([]domain.Product, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(apiBase + "/api/products")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api responded %s", resp.Status)
	}
	var ps []domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return nil, err
	}
	return ps, nil
}

func withID(args []string, fn func(uint) error) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	return fn(id)
}

func parseID(args []string) (uint, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("falta el id del producto")
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("ID inválido")
	}
	return uint(id), nil
}

func formatPrice(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', -1, 64)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".casa-comfort")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: shop [flags] <command>

commands:
  products                      list the catalog
  add <id>                      add a product to the cart
  remove <id>                   remove a line from the cart
  decrement <id>                decrease a line by one
  show                          print the cart
  clear                         empty the cart
  checkout -nombre N -apellido A -celular C
                                print the WhatsApp checkout link`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
