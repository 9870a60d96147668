package scanning

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `Bir Türk alışveriş fişini veya faturasını inceliyorsun. Görüntüdeki tüm metni dikkatlice oku ve aşağıdaki bilgileri çıkar:

1. **Tutar**: KDV dahil ödenen toplam tutar ("TOPLAM", "GENEL TOPLAM", "KDV DAHİL TUTAR"). Para birimi simgesi olmadan sayı olarak yaz (ör. 1.599,90 için 1599.90).

2. **Kategori**: Şunlardan biri: Market, Yeme-İçme, Ulaşım, Sağlık, Giyim, Elektronik, Faturalar, Eğlence, Eğitim, Kişisel Bakım, Ev, Diğer.

3. **Açıklama**: Mağaza veya işletme adı (ör. "Migros", "BİM", "Shell").

4. **Para Birimi**: TRY, USD, EUR veya GBP.

5. **Tarih**: İşlem tarihi, YYYY-MM-DD biçiminde.

6. **Ürünler**: Fişteki her ürün satırı. Adet belirtilmemişse 1 yaz. Birim fiyat yalnızca adet 1'den büyükse ve fişte açıkça yazıyorsa doldurulmalı. Ürün kategorisi şunlardan biri olmalı: Temizlik, Kişisel Bakım, Bebek, Süt Ürünleri, Fırın, Et & Tavuk, İçecek, Meyve & Sebze, Atıştırmalık, Temel Gıda.

YALNIZCA şu biçimde geçerli JSON döndür:
{
  "amount": 0.00,
  "category": "Market",
  "description": "Mağaza Adı",
  "currency": "TRY",
  "date": "YYYY-MM-DD",
  "items": [
    {"name": "Ürün", "quantity": 1, "unit_price": null, "total_price": 0.00, "category": "Temel Gıda", "brand": null}
  ]
}

Önemli:
- Tutarlar metin değil sayı olmalı
- Bulamadığın alanlar için null kullan
- Toplam, KDV, ödeme ve para üstü satırlarını ürün olarak yazma
- JSON dışında hiçbir metin ekleme
- Markdown kod bloğu kullanma`
